package processor

import (
	"fmt"
	"strings"
)

// FillStrategy 数值列缺失值填充方式
type FillStrategy int

const (
	FillMean FillStrategy = iota
	FillMedian
)

func (s FillStrategy) String() string {
	if s == FillMedian {
		return "Median"
	}
	return "Mean"
}

// EncodingMethod 类别列编码方式
type EncodingMethod int

const (
	LabelEncoding EncodingMethod = iota
	OneHotEncoding
)

func (m EncodingMethod) String() string {
	if m == OneHotEncoding {
		return "One-Hot Encoding"
	}
	return "Label Encoding"
}

// ScalingMethod 数值列缩放方式
type ScalingMethod int

const (
	StandardScaling ScalingMethod = iota
	MinMaxScaling
)

func (m ScalingMethod) String() string {
	if m == MinMaxScaling {
		return "MinMaxScaler"
	}
	return "StandardScaler"
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return r.Replace(s)
}

// ParseFillStrategy 接受 "Mean"/"Median"，大小写不敏感
func ParseFillStrategy(s string) (FillStrategy, error) {
	switch normalize(s) {
	case "mean":
		return FillMean, nil
	case "median":
		return FillMedian, nil
	}
	return 0, fmt.Errorf("unknown fill strategy %q", s)
}

// ParseEncodingMethod 接受 "Label Encoding"/"label"/"One-Hot Encoding"/"onehot"
func ParseEncodingMethod(s string) (EncodingMethod, error) {
	switch normalize(s) {
	case "label", "labelencoding":
		return LabelEncoding, nil
	case "onehot", "onehotencoding":
		return OneHotEncoding, nil
	}
	return 0, fmt.Errorf("unknown encoding method %q", s)
}

// ParseScalingMethod 接受 "StandardScaler"/"standard"/"MinMaxScaler"/"minmax"
func ParseScalingMethod(s string) (ScalingMethod, error) {
	switch normalize(s) {
	case "standard", "standardscaler", "zscore":
		return StandardScaling, nil
	case "minmax", "minmaxscaler":
		return MinMaxScaling, nil
	}
	return 0, fmt.Errorf("unknown scaling method %q", s)
}
