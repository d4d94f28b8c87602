package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/middleware"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"
	"github.com/AIP-project/portfolia-backend-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler dumps a user's live transactions across all accounts.
type ExportHandler struct {
	DB *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{DB: db}
}

type exportRow struct {
	Account  string
	AcctType models.AccountType
	Symbol   string
	TxType   models.TransactionType
	Quantity string
	Amount   string
	Currency string
	Date     string
}

var exportHeaders = []string{"Account", "Account Type", "Symbol", "Type", "Quantity", "Amount", "Currency", "Date"}

func (h *ExportHandler) loadRows(userID uint) ([]exportRow, error) {
	var txs []models.Transaction
	err := h.DB.
		Joins("JOIN accounts ON accounts.id = transactions.account_id").
		Where("accounts.user_id = ? AND accounts.is_deleted = ? AND transactions.is_deleted = ?", userID, false, false).
		Preload("Account").
		Order("transactions.transaction_date DESC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}

	rows := make([]exportRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, exportRow{
			Account:  t.Account.Name,
			AcctType: t.Account.Type,
			Symbol:   t.Symbol,
			TxType:   t.Type,
			Quantity: t.Quantity.String(),
			Amount:   t.Amount.String(),
			Currency: t.Currency,
			Date:     t.TransactionDate.Format("2006-01-02"),
		})
	}
	return rows, nil
}

// ExportCSV exports transactions as CSV.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	user := middleware.CurrentUser(c)

	rows, err := h.loadRows(user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "query transactions failed")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"",
		time.Now().Format("20060102")))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, r := range rows {
		writer.Write([]string{
			r.Account, string(r.AcctType), r.Symbol, string(r.TxType),
			r.Quantity, r.Amount, r.Currency, r.Date,
		})
	}
}

// ExportXLSX exports transactions as an Excel workbook.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	user := middleware.CurrentUser(c)

	rows, err := h.loadRows(user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "query transactions failed")
		return
	}

	f := excelize.NewFile()
	sheetName := "Transactions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "create sheet failed")
		return
	}
	f.SetActiveSheet(index)

	for i, head := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, head)
	}
	for idx, r := range rows {
		row := idx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.Account)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), string(r.AcctType))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.Symbol)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), string(r.TxType))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.Quantity)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.Currency)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Date)
	}

	f.SetColWidth(sheetName, "A", "B", 16)
	f.SetColWidth(sheetName, "C", "D", 12)
	f.SetColWidth(sheetName, "E", "F", 14)
	f.SetColWidth(sheetName, "G", "H", 10)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "export failed")
	}
}
