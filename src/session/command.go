package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"DataPrep/src/datasource/file"
	"DataPrep/src/processor"
)

// 命令名
const (
	CmdMissing  = "missing"
	CmdDedup    = "dedup"
	CmdSplit    = "split"
	CmdEncode   = "encode"
	CmdScale    = "scale"
	CmdClip     = "clip"
	CmdShow     = "show"
	CmdDescribe = "describe"
	CmdExport   = "export"
	CmdHelp     = "help"
)

// ErrTargetRequired split 未给出目标列
var ErrTargetRequired = errors.New("Enter target name first.")

// ErrUnknownCommand 无法识别的命令
var ErrUnknownCommand = errors.New("unknown command")

const helpText = `commands:
  missing mean|median        fill missing values
  dedup                      remove duplicate rows
  split <target>             80/20 train-test split
  encode label|onehot        encode categorical columns
  scale standard|minmax      scale numeric columns
  clip                       IQR outlier clipping
  show                       dataset overview
  describe <column>          value counts of a column
  export <path.xlsx|path.csv>
  help`

// Command 一行输入解析后的命令
type Command struct {
	Name string
	Arg  string
}

func (c Command) String() string {
	if c.Arg == "" {
		return c.Name
	}
	return c.Name + " " + c.Arg
}

// ParseCommand 第一个词为命令名，其余原样作为参数
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}
	name, arg, _ := strings.Cut(line, " ")
	cmd := Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}
	switch cmd.Name {
	case CmdMissing, CmdDedup, CmdSplit, CmdEncode, CmdScale, CmdClip,
		CmdShow, CmdDescribe, CmdExport, CmdHelp:
		return cmd, nil
	}
	return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// Execute 执行一条命令，返回展示文本；处理步骤会写入历史
func (s *Session) Execute(ctx context.Context, cmd Command) (string, error) {
	var (
		report *processor.Report
		err    error
	)
	p := s.Pipeline()

	switch cmd.Name {
	case CmdMissing:
		var strategy processor.FillStrategy
		if strategy, err = processor.ParseFillStrategy(orDefault(cmd.Arg, "mean")); err == nil {
			report, err = p.HandleMissingValues(strategy)
		}
	case CmdDedup:
		report, err = p.RemoveDuplicates()
	case CmdSplit:
		if cmd.Arg == "" {
			return "", ErrTargetRequired
		}
		report, err = p.TrainTestSplit(cmd.Arg)
	case CmdEncode:
		var method processor.EncodingMethod
		if method, err = processor.ParseEncodingMethod(orDefault(cmd.Arg, "label")); err == nil {
			report, err = p.Encode(method)
		}
	case CmdScale:
		var method processor.ScalingMethod
		if method, err = processor.ParseScalingMethod(orDefault(cmd.Arg, "standard")); err == nil {
			report, err = p.Scale(method)
		}
	case CmdClip:
		report, err = p.ClipOutliers()
	case CmdShow:
		return s.show(), nil
	case CmdDescribe:
		return s.describe(cmd.Arg)
	case CmdExport:
		return s.export(cmd.Arg)
	case CmdHelp:
		return helpText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}

	entry := Entry{Time: time.Now(), Command: cmd.String(), Report: report}
	if err != nil {
		entry.Error = err.Error()
		s.record(entry)
		return "", err
	}
	s.record(entry)
	s.notify(ctx, report)
	return report.String(), nil
}

// notify 仅推送改变了数据的步骤，推送失败只记日志
func (s *Session) notify(ctx context.Context, report *processor.Report) {
	if s.notifier == nil || report == nil || report.Skipped {
		return
	}
	title := fmt.Sprintf("数据预处理: %s", report.Step)
	text := fmt.Sprintf("#### %s\n\n%s\n\n会话: %s", report.Step, report.String(), s.ID())
	if err := s.notifier.Notify(ctx, title, text); err != nil {
		s.logger.Warning(fmt.Sprintf("推送步骤结果失败: %v", err))
	}
}

func (s *Session) show() string {
	sum := s.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "session %s\n", sum.ID)
	if sum.Source.Source != "" {
		fmt.Fprintf(&b, "source: %s (%s)\n", sum.Source.Source, sum.Source.Kind)
	}
	fmt.Fprintf(&b, "shape: %s\n", sum.Shape)
	fmt.Fprintf(&b, "duplicate rows: %d\n", sum.Duplicates)
	var numeric, categorical []string
	for _, c := range sum.Columns {
		switch c.Kind {
		case "numeric":
			numeric = append(numeric, c.Name)
		case "categorical":
			categorical = append(categorical, c.Name)
		}
	}
	fmt.Fprintf(&b, "numeric columns: %s\n", strings.Join(numeric, ", "))
	fmt.Fprintf(&b, "categorical columns: %s\n", strings.Join(categorical, ", "))
	for _, m := range sum.Missing {
		fmt.Fprintf(&b, "missing %s: %d (%.2f%%)\n", m.Column, m.Count, m.Percent)
	}
	if sum.HasSplit {
		fmt.Fprintf(&b, "target: %s\nTrain shape: %s, Test shape: %s\n", sum.Target, sum.TrainShape, sum.TestShape)
	}
	if len(sum.Encoders) > 0 {
		fmt.Fprintf(&b, "encoders: %s\n", strings.Join(sum.Encoders, ", "))
	}
	if sum.Scaler != "" {
		fmt.Fprintf(&b, "scaler: %s\n", sum.Scaler)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Session) describe(column string) (string, error) {
	if column == "" {
		return "", fmt.Errorf("describe needs a column name")
	}
	ds := s.Pipeline().Dataset()
	if ds == nil {
		return "", processor.ErrColumnNotFound("describe", column)
	}
	counts, ok := ds.ValueCounts(column)
	if !ok {
		return "", processor.ErrColumnNotFound("describe", column)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d distinct)", column, len(counts))
	for _, vc := range counts {
		fmt.Fprintf(&b, "\n  %s: %d", vc.Value, vc.Count)
	}
	return b.String(), nil
}

func (s *Session) export(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("export needs a target path")
	}
	written, err := file.ExportState(path, s.Pipeline().State())
	if err != nil {
		return "", err
	}
	s.logger.Info(fmt.Sprintf("已导出: %s", strings.Join(written, ", ")))
	return "exported " + strings.Join(written, ", "), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
