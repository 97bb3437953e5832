package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"DataPrep/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Sheet 导出的一个工作表
type Sheet struct {
	Name  string
	Frame dataframe.DataFrame
}

// StateSheets 流水线状态对应的工作表：dataset，划分后再加 X_train、X_test、y_train、y_test
func StateSheets(st processor.State) []Sheet {
	var sheets []Sheet
	if st.Dataset != nil {
		sheets = append(sheets, Sheet{Name: "dataset", Frame: st.Dataset.Frame()})
	}
	if sp := st.Split; sp != nil {
		sheets = append(sheets,
			Sheet{Name: "X_train", Frame: sp.XTrain},
			Sheet{Name: "X_test", Frame: sp.XTest},
			Sheet{Name: "y_train", Frame: dataframe.New(sp.YTrain)},
			Sheet{Name: "y_test", Frame: dataframe.New(sp.YTest)},
		)
	}
	return sheets
}

// ExportState 按扩展名导出：.xlsx 写多个工作表；.csv 未划分时写数据集，划分后每个矩阵一个文件
func ExportState(path string, st processor.State) ([]string, error) {
	sheets := StateSheets(st)
	if len(sheets) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		if st.Split == nil {
			return []string{path}, SaveCSV(sheets[0].Frame, path)
		}
		base := strings.TrimSuffix(path, filepath.Ext(path))
		var written []string
		for _, s := range sheets[1:] {
			out := fmt.Sprintf("%s_%s.csv", base, s.Name)
			if err := SaveCSV(s.Frame, out); err != nil {
				return written, err
			}
			written = append(written, out)
		}
		return written, nil
	}
	return []string{path}, SaveToExcel(path, sheets...)
}

// SaveCSV 写 CSV，缺失值按 gota 的方式写为 NaN
func SaveCSV(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer f.Close()
	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("写入CSV文件失败: %w", err)
	}
	return nil
}

// SaveToExcel 将多个 DataFrame 写入同一个 xlsx，每个一个工作表
func SaveToExcel(filePath string, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if s.Frame.Err != nil {
			return fmt.Errorf("工作表 %s 数据无效: %w", s.Name, s.Frame.Err)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}
		if err := writeSheet(f, s.Name, s.Frame); err != nil {
			return fmt.Errorf("写入工作表 %s 失败: %w", s.Name, err)
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, df dataframe.DataFrame) error {
	// 写入列名
	header := make([]interface{}, 0, df.Ncol())
	for _, name := range df.Names() {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	// 写入数据，缺失值留空
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, df.Col(name))
	}
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(cols))
		for i, col := range cols {
			row[i] = cellValue(col.Elem(rowIdx))
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(e series.Element) interface{} {
	if e.IsNA() {
		return nil
	}
	switch e.Type() {
	case series.Float:
		return e.Float()
	case series.Int:
		v, _ := e.Int()
		return v
	case series.Bool:
		v, _ := e.Bool()
		return v
	default:
		return e.String()
	}
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}
