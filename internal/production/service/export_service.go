package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetBoard   = "Plan Board"
	sheetColors  = "Color Breakdown"
	sheetSummary = "Summary"
)

var colorSheetHeaders = []string{
	"Date", "Line", "Color", "Quantity", "Operators", "Helpers", "Checkers", "Daily Target", "Efficiency %",
}

// ExportSheet 导出所需的全部数据
type ExportSheet struct {
	OrderCode string
	StyleCode string
	Grid      *planning.Grid
	Summary   Summary
	// LineNames and ColorNames map IDs to display names; unknown IDs print as is.
	LineNames  map[string]string
	ColorNames map[string]string
	Warning    string
}

// ExportService 计划导出与归档
type ExportService struct {
	minio  *minio.Client
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

func NewExportService(client *minio.Client, bucket string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{minio: client, bucket: bucket, logger: logger, now: time.Now}
}

// Workbook 生成排产看板 xlsx：日期为行、产线为列，另附颜色明细和汇总
func (s *ExportService) Workbook(sheet ExportSheet) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetBoard); err != nil {
		f.Close()
		return nil, "", err
	}
	if _, err := f.NewSheet(sheetColors); err != nil {
		f.Close()
		return nil, "", err
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		f.Close()
		return nil, "", err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	g := sheet.Grid
	lineIDs := g.LineIDs()

	// 看板：表头
	f.SetCellValue(sheetBoard, "A1", "Date")
	for i, id := range lineIDs {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		f.SetCellValue(sheetBoard, cell, nameOf(sheet.LineNames, id))
	}
	totalCol, _ := excelize.ColumnNumberToName(len(lineIDs) + 2)
	f.SetCellValue(sheetBoard, totalCol+"1", "Total")
	f.SetCellStyle(sheetBoard, "A1", totalCol+"1", boldStyle)

	// 看板 + 明细：数据行
	colorRow := 2
	for i, h := range colorSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetColors, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(colorSheetHeaders), 1)
	f.SetCellStyle(sheetColors, "A1", lastHeader, boldStyle)

	for r, date := range g.Dates() {
		row := r + 2
		f.SetCellValue(sheetBoard, fmt.Sprintf("A%d", row), date.String())
		var dayTotal float64
		for i, id := range lineIDs {
			c, ok := g.Cell(date, id)
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+2, row)
			f.SetCellValue(sheetBoard, cell, c.TotalQty)
			dayTotal += c.TotalQty

			for _, colorID := range sortedKeys(c.ColorPlans) {
				f.SetCellValue(sheetColors, fmt.Sprintf("A%d", colorRow), date.String())
				f.SetCellValue(sheetColors, fmt.Sprintf("B%d", colorRow), nameOf(sheet.LineNames, id))
				f.SetCellValue(sheetColors, fmt.Sprintf("C%d", colorRow), nameOf(sheet.ColorNames, colorID))
				f.SetCellValue(sheetColors, fmt.Sprintf("D%d", colorRow), c.ColorPlans[colorID])
				f.SetCellValue(sheetColors, fmt.Sprintf("E%d", colorRow), c.Manpower.Operators)
				f.SetCellValue(sheetColors, fmt.Sprintf("F%d", colorRow), c.Manpower.Helpers)
				f.SetCellValue(sheetColors, fmt.Sprintf("G%d", colorRow), c.Manpower.Checkers)
				f.SetCellValue(sheetColors, fmt.Sprintf("H%d", colorRow), c.DailyTarget)
				f.SetCellValue(sheetColors, fmt.Sprintf("I%d", colorRow), roundTo(c.EfficiencyPercent, 1))
				colorRow++
			}
		}
		f.SetCellValue(sheetBoard, fmt.Sprintf("%s%d", totalCol, row), dayTotal)
	}

	// 汇总
	summaryRows := [][2]interface{}{
		{"Order", sheet.OrderCode},
		{"Style", sheet.StyleCode},
		{"Order quantity", sheet.Summary.OrderQuantity},
		{"Planned", sheet.Summary.Planned},
		{"Unplanned", sheet.Summary.Unplanned},
		{"Completion date", sheet.Summary.CompletionDate.String()},
		{"Planned days", sheet.Summary.Days},
	}
	if sheet.Warning != "" {
		summaryRows = append(summaryRows, [2]interface{}{"Warning", sheet.Warning})
	}
	for i, kv := range summaryRows {
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", i+1), kv[0])
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", i+1), kv[1])
	}
	f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", len(summaryRows)), boldStyle)

	f.SetColWidth(sheetBoard, "A", "A", 12)
	f.SetColWidth(sheetColors, "A", "C", 14)
	f.SetColWidth(sheetSummary, "A", "B", 18)

	filename := fmt.Sprintf("LinePlan_%s_%s.xlsx", sheet.OrderCode, s.now().Format("20060102"))
	return f, filename, nil
}

// Archive 将导出的工作簿归档到对象存储，返回对象名
func (s *ExportService) Archive(ctx context.Context, orderID, filename string, data []byte) (string, error) {
	if s.minio == nil {
		return "", ErrArchiveDisabled
	}
	objectName := path.Join("line-plans", orderID, s.now().Format("20060102-150405")+"_"+filename)
	_, err := s.minio.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return "", fmt.Errorf("archive plan workbook: %w", err)
	}
	s.logger.Info("Plan workbook archived",
		zap.String("order_id", orderID), zap.String("bucket", s.bucket), zap.String("object", objectName))
	return objectName, nil
}

func nameOf(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}
