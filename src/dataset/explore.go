package dataset

import (
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColumnCount 某列的计数
type ColumnCount struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// MissingCounts 每列缺失值个数及占比，保持列顺序
func (d *Dataset) MissingCounts() []ColumnCount {
	return MissingCounts(d.df)
}

// MissingCounts 统计任意 DataFrame 的缺失值
func MissingCounts(df dataframe.DataFrame) []ColumnCount {
	n := df.Nrow()
	out := make([]ColumnCount, 0, df.Ncol())
	for _, name := range df.Names() {
		cnt := CountNA(df.Col(name))
		pct := 0.0
		if n > 0 {
			pct = float64(cnt) * 100 / float64(n)
		}
		out = append(out, ColumnCount{Column: name, Count: cnt, Percent: pct})
	}
	return out
}

// CountNA 统计列中缺失值
func CountNA(s series.Series) int {
	cnt := 0
	for _, na := range s.IsNaN() {
		if na {
			cnt++
		}
	}
	return cnt
}

// TotalMissing 整表缺失值总数
func (d *Dataset) TotalMissing() int {
	total := 0
	for _, c := range d.MissingCounts() {
		total += c.Count
	}
	return total
}

// RowKeys 每一行的拼接键，缺失值统一为 NaN，用于判重
func RowKeys(df dataframe.DataFrame) []string {
	nrow := df.Nrow()
	cells := make([][]string, nrow)
	for _, name := range df.Names() {
		col := df.Col(name)
		for i := 0; i < nrow; i++ {
			cells[i] = append(cells[i], CellKey(col.Elem(i)))
		}
	}
	keys := make([]string, nrow)
	for i, row := range cells {
		keys[i] = strings.Join(row, "\x1f")
	}
	return keys
}

// CellKey 单元格的比较键；浮点数用最短精确表示，避免 %f 截断造成误判
func CellKey(e series.Element) string {
	if e.IsNA() {
		return "NaN"
	}
	if e.Type() == series.Float {
		return strconv.FormatFloat(e.Float(), 'g', -1, 64)
	}
	return e.String()
}

// FirstOccurrences 返回每个不同行第一次出现的下标（升序）
func FirstOccurrences(df dataframe.DataFrame) []int {
	seen := make(map[string]struct{})
	keep := make([]int, 0, df.Nrow())
	for i, key := range RowKeys(df) {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	return keep
}

// DuplicateCount 与之前某行完全相同的行数
func (d *Dataset) DuplicateCount() int {
	return d.df.Nrow() - len(FirstOccurrences(d.df))
}

// ValueCount 一个取值及其出现次数
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts 按次数降序，次数相同按首次出现顺序，缺失值不计
func (d *Dataset) ValueCounts(column string) ([]ValueCount, bool) {
	if !d.HasColumn(column) {
		return nil, false
	}
	col := d.df.Col(column)
	index := make(map[string]int)
	var out []ValueCount
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		v := e.String()
		if pos, ok := index[v]; ok {
			out[pos].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, true
}

// ColumnInfo 列名、类型、类别
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind string `json:"kind"`
}

// Columns 列信息，对应探索页的 dtypes
func (d *Dataset) Columns() []ColumnInfo {
	names := d.df.Names()
	types := d.df.Types()
	out := make([]ColumnInfo, len(names))
	for i := range names {
		out[i] = ColumnInfo{Name: names[i], Type: string(types[i]), Kind: KindOf(types[i]).String()}
	}
	return out
}
