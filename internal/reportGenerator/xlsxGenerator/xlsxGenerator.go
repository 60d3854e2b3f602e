package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the snapshot and the raw transaction log into a workbook.
func (g *XLSXGenerator) Generate(ctx context.Context, snapshot model.Snapshot, transactions []model.Transaction, assetsByID map[int64]model.Asset) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(snapshot.Rows) == 0 && len(transactions) == 0 {
		return nil, "", errors.New("empty portfolio")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillPositionsSheet(f, snapshot); err != nil {
		slog.Error("got error while filling positions sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillTransactionsSheet(f, transactions, assetsByID); err != nil {
		slog.Error("got error while filling transactions sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillPositionsSheet(f *excelize.File, snapshot model.Snapshot) error {
	sheetName := "Positions"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "I1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Positions")

	styleID, err := g.headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "name")
	_ = f.SetCellStr(sheetName, "C2", "group")
	_ = f.SetCellStr(sheetName, "D2", "quantity")
	_ = f.SetCellStr(sheetName, "E2", "avg cost")
	_ = f.SetCellStr(sheetName, "F2", "price")
	_ = f.SetCellStr(sheetName, "G2", "value")
	_ = f.SetCellStr(sheetName, "H2", "unrealized pnl")
	_ = f.SetCellStr(sheetName, "I2", "allocation %")

	rowNum := 2
	for _, row := range snapshot.Rows {
		// derived basket rows are a dashboard affordance, not holdings
		if row.RowKind != model.RowKindAsset {
			continue
		}
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), row.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), row.Name)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), row.GroupName)
		if row.Quantity != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), row.Quantity.InexactFloat64())
		}
		if row.AvgCost != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), row.AvgCost.InexactFloat64())
		}
		if row.CurrentPrice != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), row.CurrentPrice.InexactFloat64())
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), row.CurrentValue.InexactFloat64())
		if row.UnrealizedPnL != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), row.UnrealizedPnL.InexactFloat64())
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", rowNum), row.AllocationPct.InexactFloat64())
	}

	// group totals
	rowNum += 3
	if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("C%d", rowNum)); err != nil {
		return err
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "Group totals")

	styleID, err = g.headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return err
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "group")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "value")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "unrealized pnl")

	for _, total := range snapshot.GroupTotals {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), total.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), total.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), total.PnL.InexactFloat64())
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), snapshot.CanonicalTotalValue.InexactFloat64())

	return nil
}

func (g *XLSXGenerator) fillTransactionsSheet(f *excelize.File, transactions []model.Transaction, assetsByID map[int64]model.Asset) error {
	sheetName := "Transactions"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Transaction log")

	styleID, err := g.headerStyle(f, "#cccccc")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "date")
	_ = f.SetCellStr(sheetName, "B2", "symbol")
	_ = f.SetCellStr(sheetName, "C2", "type")
	_ = f.SetCellStr(sheetName, "D2", "quantity")
	_ = f.SetCellStr(sheetName, "E2", "price")
	_ = f.SetCellStr(sheetName, "F2", "fees")
	_ = f.SetCellStr(sheetName, "G2", "note")

	rowNum := 2
	for _, trx := range model.SortTransactions(transactions) {
		rowNum++
		symbol := ""
		if asset, ok := assetsByID[trx.AssetID]; ok {
			symbol = asset.Symbol
		}
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), trx.Timestamp.Format(time.RFC3339))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), string(trx.Type))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), trx.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), trx.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), trx.Fees.InexactFloat64())
		if trx.Note != "" {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", rowNum), trx.Note)
		}
	}

	return nil
}
