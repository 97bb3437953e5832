// Package dataset 数据集容器：一张二维表 + 来源信息
package dataset

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// SourceKind 数据来源类别
type SourceKind string

const (
	SourceFile     SourceKind = "file"
	SourceEmail    SourceKind = "email"
	SourceDatabase SourceKind = "database"
	SourceMemory   SourceKind = "memory"
)

// Provenance 数据来源信息
type Provenance struct {
	Kind     SourceKind
	Source   string    // 文件路径 / 邮件主题 / SQL
	ModTime  time.Time // 文件修改时间或邮件日期
	Checksum string    // 原始字节的 md5
	LoadedAt time.Time
}

// Shape 行列数
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

var ErrEmptyFrame = errors.New("dataset has no columns")

// Dataset 不可变快照，每次变换都产生新的 Dataset
type Dataset struct {
	df   dataframe.DataFrame
	prov Provenance
}

// New 包装一个 DataFrame，DataFrame 自带错误时直接返回
func New(df dataframe.DataFrame, prov Provenance) (*Dataset, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("invalid dataframe: %w", df.Err)
	}
	if df.Ncol() == 0 {
		return nil, ErrEmptyFrame
	}
	if prov.LoadedAt.IsZero() {
		prov.LoadedAt = time.Now()
	}
	return &Dataset{df: df, prov: prov}, nil
}

// FromRecords 由首行为表头的字符串矩阵构建数据集，空串与 NA/NaN 视为缺失
func FromRecords(records [][]string, prov Provenance, opts ...dataframe.LoadOption) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFrame
	}
	base := []dataframe.LoadOption{
		dataframe.NaNValues(DefaultNaNValues),
	}
	df := dataframe.LoadRecords(records, append(base, opts...)...)
	if prov.Kind == "" {
		prov.Kind = SourceMemory
	}
	if prov.Checksum == "" {
		prov.Checksum = Checksum([]byte(joinRecords(records)))
	}
	return New(df, prov)
}

// DefaultNaNValues 读入时视为缺失的取值
var DefaultNaNValues = []string{"", "NA", "NaN", "nan", "null", "<nil>"}

// Checksum 计算字节内容的 md5
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func joinRecords(records [][]string) string {
	var b strings.Builder
	for _, row := range records {
		b.WriteString(strings.Join(row, "\x1f"))
		b.WriteByte('\n')
	}
	return b.String()
}

func (d *Dataset) Frame() dataframe.DataFrame { return d.df }

func (d *Dataset) Provenance() Provenance { return d.prov }

func (d *Dataset) Names() []string { return d.df.Names() }

func (d *Dataset) Types() []series.Type { return d.df.Types() }

func (d *Dataset) Shape() Shape {
	r, c := d.df.Dims()
	return Shape{Rows: r, Cols: c}
}

func (d *Dataset) Nrow() int { return d.df.Nrow() }

// HasColumn 判断列是否存在
func (d *Dataset) HasColumn(name string) bool {
	for _, n := range d.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// WithFrame 用新的表替换内容，来源信息保持不变
func (d *Dataset) WithFrame(df dataframe.DataFrame) (*Dataset, error) {
	return New(df, d.prov)
}

// Equal 结构化比较：列名、列类型、每个单元格都相同；缺失值与缺失值相等
func (d *Dataset) Equal(other *Dataset) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Shape() != other.Shape() {
		return false
	}
	an, bn := d.df.Names(), other.df.Names()
	at, bt := d.df.Types(), other.df.Types()
	for i := range an {
		if an[i] != bn[i] || at[i] != bt[i] {
			return false
		}
	}
	for _, name := range an {
		if !seriesEqual(d.df.Col(name), other.df.Col(name)) {
			return false
		}
	}
	return true
}

func seriesEqual(a, b series.Series) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		ea, eb := a.Elem(i), b.Elem(i)
		if ea.IsNA() || eb.IsNA() {
			if ea.IsNA() != eb.IsNA() {
				return false
			}
			continue
		}
		if a.Type() == series.Float {
			if ea.Float() != eb.Float() {
				return false
			}
			continue
		}
		if ea.String() != eb.String() {
			return false
		}
	}
	return true
}
