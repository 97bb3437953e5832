package utils

import (
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	return IndexOf(slice, item) >= 0
}

// IndexOf 返回元素第一次出现的位置，不存在时返回 -1
func IndexOf[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// ColumnsOfType 按列顺序返回类型属于 types 的列名
func ColumnsOfType(df dataframe.DataFrame, types ...series.Type) []string {
	names := df.Names()
	colTypes := df.Types()
	out := make([]string, 0, len(names))
	for i, name := range names {
		if Contains(types, colTypes[i]) {
			out = append(out, name)
		}
	}
	return out
}

// SortedKeys 返回 map 的有序键
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SeqInts 生成 [from, to) 的整数序列，用于 DataFrame.Subset
func SeqInts(from, to int) []int {
	if to <= from {
		return []int{}
	}
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
