package processor

import (
	"fmt"

	"DataPrep/src/dataset"
)

// removeDuplicates 删除与前面某行完全相同的行，保留第一次出现
func removeDuplicates(st State, _ Options) (State, *Report, error) {
	df := st.Dataset.Frame()
	keep := dataset.FirstOccurrences(df)
	removed := df.Nrow() - len(keep)
	if removed == 0 {
		return st, &Report{
			Step:    StepDuplicates,
			Status:  StatusSuccess,
			Message: "No duplicate rows found.",
		}, nil
	}

	out := df.Subset(keep)
	if out.Err != nil {
		return st, nil, fmt.Errorf("subset rows: %w", out.Err)
	}
	next, err := st.Dataset.WithFrame(out)
	if err != nil {
		return st, nil, err
	}
	st.Dataset = next
	return st, &Report{
		Step:    StepDuplicates,
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Removed %d duplicate rows.", removed),
		Removed: removed,
	}, nil
}
