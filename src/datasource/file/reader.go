// reader.go
package file

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DataPrep/src/config"
	"DataPrep/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// IngestionError 数据集无法读取或解析
type IngestionError struct {
	Source string
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("[INGESTION_ERROR] %s: %v", e.Source, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Options 读取参数
type Options struct {
	SheetName string
	HeaderRow int
	Encoding  string
	Delimiter rune
	NaNValues []string
}

// OptionsFromConfig 由配置生成读取参数
func OptionsFromConfig(c config.DatasetConfig) Options {
	opts := Options{
		SheetName: c.SheetName,
		HeaderRow: c.HeaderRow,
		Encoding:  c.Encoding,
		Delimiter: ',',
		NaNValues: c.NaNValues,
	}
	if r := []rune(c.Delimiter); len(r) > 0 {
		opts.Delimiter = r[0]
	}
	return opts
}

func (o Options) nanValues() []string {
	if len(o.NaNValues) == 0 {
		return dataset.DefaultNaNValues
	}
	return o.NaNValues
}

// Load 按扩展名读取 csv / xlsx 文件为数据集
func Load(path string, opts Options) (*dataset.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IngestionError{Source: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IngestionError{Source: path, Err: err}
	}
	return LoadBytes(path, data, opts, dataset.Provenance{
		Kind:    dataset.SourceFile,
		Source:  path,
		ModTime: info.ModTime(),
	})
}

// LoadBytes 从内存内容读取，name 仅用于判断格式
func LoadBytes(name string, data []byte, opts Options, prov dataset.Provenance) (*dataset.Dataset, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		df, err = ReadCSV(bytes.NewReader(data), opts)
	case ".xlsx":
		df, err = ReadXLSXBytes(data, opts)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, &IngestionError{Source: name, Err: err}
	}

	prov.Checksum = dataset.Checksum(data)
	if prov.LoadedAt.IsZero() {
		prov.LoadedAt = time.Now()
	}
	ds, err := dataset.New(df, prov)
	if err != nil {
		return nil, &IngestionError{Source: name, Err: err}
	}
	return ds, nil
}

// ReadCSV 读取带表头的 CSV，自动推断列类型；gbk 编码先转码
func ReadCSV(r io.Reader, opts Options) (dataframe.DataFrame, error) {
	if isGBK(opts.Encoding) {
		r = transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithDelimiter(delim),
		dataframe.NaNValues(opts.nanValues()),
	)
	if df.Err != nil {
		return df, fmt.Errorf("parse csv: %w", df.Err)
	}
	return df, nil
}

func isGBK(enc string) bool {
	switch strings.ToLower(strings.ReplaceAll(enc, "-", "")) {
	case "gbk", "gb2312", "gb18030":
		return true
	}
	return false
}

// ReadXLSX 读取 xlsx 文件的指定工作表，sheetName 为空时取第一个
func ReadXLSX(filePath string, opts Options) (dataframe.DataFrame, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	return ReadXLSXBytes(data, opts)
}

// ReadXLSXBytes 先用 tealeg/xlsx 解析，失败时退回 excelize
func ReadXLSXBytes(data []byte, opts Options) (dataframe.DataFrame, error) {
	records, err := xlsxRecords(data, opts)
	if err != nil {
		var fallbackErr error
		records, fallbackErr = excelizeRecords(data, opts)
		if fallbackErr != nil {
			return dataframe.DataFrame{}, fmt.Errorf("读取xlsx失败: %v; %w", err, fallbackErr)
		}
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表为空")
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(opts.nanValues()),
	)
	if df.Err != nil {
		return df, fmt.Errorf("parse sheet: %w", df.Err)
	}
	return df, nil
}

func xlsxRecords(data []byte, opts Options) ([][]string, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("xlsx open binary false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return nil, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if opts.SheetName != "" {
		s, ok := xlFile.Sheet[opts.SheetName]
		if !ok {
			return nil, fmt.Errorf("工作表 %s 不存在", opts.SheetName)
		}
		sheet = s
	}

	// 3. 转换为字符串矩阵
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.Value
		}
		rows = append(rows, cells)
	}
	return sheetRecords(rows, opts.HeaderRow), nil
}

func excelizeRecords(data []byte, opts Options) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := opts.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("excel文件中没有工作表")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return sheetRecords(rows, opts.HeaderRow), nil
}

// sheetRecords 从 headerRow 行取表头，之后的行补齐或截断到表头宽度，整行为空的跳过
func sheetRecords(rows [][]string, headerRow int) [][]string {
	if headerRow < 0 || headerRow >= len(rows) {
		return nil
	}
	headers := make([]string, 0, len(rows[headerRow]))
	for _, h := range rows[headerRow] {
		headers = append(headers, strings.TrimSpace(h))
	}
	// 去掉表头末尾的空列
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return nil
	}

	records := [][]string{headers}
	for _, row := range rows[headerRow+1:] {
		rec := make([]string, len(headers))
		empty := true
		for i := range rec {
			if i < len(row) {
				rec[i] = row[i]
				if strings.TrimSpace(row[i]) != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		records = append(records, rec)
	}
	return records
}
