package pipeline

// extractionPrompt instructs the model to turn OCR table text into CSV
// transaction rows. The table text is appended after the prompt.
const extractionPrompt = `You are an expert at extracting transaction data from bank and credit card statements.

TASK: Extract ONLY transaction data from the provided LaTeX table text and convert to CSV format.

IMPORTANT PARSING RULES:
1. **Table Structure**: Tables are in LaTeX format with & symbols separating columns
2. **Empty Cells**: If there is empty space between two & symbols (like "& &"), that cell is EMPTY - preserve this as empty in CSV
3. **Transaction Identification**: Only extract rows that START with a date pattern (various formats possible)
4. **Table Types**:
   - Extract from tables with headers like "Date", "Transaction", "Description", "Amount", "Balance", "Credit", "Debit", "Points", "Reward"
   - SKIP tables like "Account Summary", "GST Summary", "Reward Points Summary", "Past Dues", etc.

TRANSACTION DATA EXTRACTION:
1. **Date Column**: Preserve original date format (don't convert)
2. **Description**: Keep transaction description as-is
3. **Amount Handling**:
   - Remove "INR" prefixes and commas from amounts
   - If amount has "Cr", "CR", or "cr" suffix, create "transaction_type" column = "Credit", otherwise "Debit"
   - Clean amount: "30,840.00" becomes "30840.00", "363.62 Cr" becomes "363.62"
4. **Empty Columns**: If original table has empty cells (& &), keep them empty in CSV
5. **Column Headers**: Preserve original column names from the statement

CREDIT CARD SPECIFIC:
- For credit cards (typically 4-5 columns), always create "transaction_type" column
- Mark transactions as "Credit" or "Debit" based on amount suffix or context

OUTPUT FORMAT:
- Return ONLY clean CSV data (no explanations)
- First row should be column headers
- Each subsequent row should be one transaction
- Use comma separation
- If cells contain commas, wrap in quotes
- Empty cells should be truly empty (not "N/A" or "-")

EXAMPLE:
Input: 20/06/2025 & PHONEPE Bengaluru & & 30,840.00\\
Output: 20/06/2025,PHONEPE Bengaluru,,30840.00,Debit

Input: 28/05/2025 & AMAZON PAY INDIA & - 10 & 363.62 Cr\\
Output: 28/05/2025,AMAZON PAY INDIA,- 10,363.62,Credit

Now extract transaction data from this statement:

`
