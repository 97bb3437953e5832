package dataset

import (
	"DataPrep/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Kind 列的逻辑类别
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindBoolean:
		return "boolean"
	}
	return "unknown"
}

// KindOf 由 gota 列类型推出逻辑类别
func KindOf(t series.Type) Kind {
	switch t {
	case series.Int, series.Float:
		return KindNumeric
	case series.Bool:
		return KindBoolean
	default:
		return KindCategorical
	}
}

// typesOf 每个类别对应的 gota 列类型
func typesOf(kind Kind) []series.Type {
	switch kind {
	case KindNumeric:
		return []series.Type{series.Int, series.Float}
	case KindBoolean:
		return []series.Type{series.Bool}
	case KindCategorical:
		return []series.Type{series.String}
	}
	return nil
}

// ColumnsOfKind 按原列顺序返回某一类别的列
func ColumnsOfKind(df dataframe.DataFrame, kind Kind) []string {
	return utils.ColumnsOfType(df, typesOf(kind)...)
}

func (d *Dataset) NumericColumns() []string {
	return ColumnsOfKind(d.df, KindNumeric)
}

func (d *Dataset) CategoricalColumns() []string {
	return ColumnsOfKind(d.df, KindCategorical)
}
