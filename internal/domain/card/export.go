package card

import (
	"fmt"
	"io"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
)

// WriteTransactionsXLSX renders transactions as a spreadsheet for the
// spending tracker export.
func WriteTransactionsXLSX(w io.Writer, txs []*Transaction) error {
	headers := map[string]string{
		"A1": "Date",
		"B1": "Merchant",
		"C1": "Category",
		"D1": "Amount",
		"E1": "Tax Deductible",
	}
	file := excelize.NewFile()
	sheet := "Transactions"
	file.NewSheet(sheet)
	file.DeleteSheet("Sheet1")
	for k, v := range headers {
		file.SetCellValue(sheet, k, v)
	}

	for i, t := range txs {
		row := i + 2
		file.SetCellValue(sheet, fmt.Sprintf("A%v", row), t.OccurredAt.Format(time.RFC3339))
		file.SetCellValue(sheet, fmt.Sprintf("B%v", row), t.MerchantName)
		file.SetCellValue(sheet, fmt.Sprintf("C%v", row), t.Category)
		file.SetCellValue(sheet, fmt.Sprintf("D%v", row), t.Amount)
		file.SetCellValue(sheet, fmt.Sprintf("E%v", row), t.TaxDeductible)
	}

	return file.Write(w)
}
