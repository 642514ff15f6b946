package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"bloomo-gateway/internal/metrics"
	"bloomo-gateway/pkg/llm"
)

// FragmentWriter 把文本片段交付给调用方（HTTP 分块或 websocket 帧）。
type FragmentWriter interface {
	WriteFragment(fragment string) error
	Close() error
}

// RelayResult 是一次转发的结果。Text 只包含已成功交付的片段。
type RelayResult struct {
	Text      string
	Fragments int
	// Err 记录模型侧的中途故障，只用于日志与指标。
	Err       error
	Cancelled bool
}

// Reason 返回终止原因，对应 metrics 中的 reason 标签。
func (r RelayResult) Reason() string {
	switch {
	case r.Cancelled:
		return metrics.TerminationCancelled
	case r.Err != nil:
		return metrics.TerminationFault
	default:
		return metrics.TerminationEOF
	}
}

// Relay 逐个拉取片段并转发，前一个片段写完之后才拉取下一个。
// 返回时 stream 与 w 都已关闭。
func Relay(ctx context.Context, stream llm.Stream, w FragmentWriter) RelayResult {
	var (
		acc strings.Builder
		res RelayResult
	)
	defer func() {
		_ = stream.Close()
		_ = w.Close()
		metrics.StreamTerminations.WithLabelValues(res.Reason()).Inc()
	}()

	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 请求被取消时 Recv 也会返回错误，按断开处理
			if ctx.Err() != nil {
				res.Cancelled = true
			} else {
				res.Err = err
			}
			break
		}
		if fragment == "" {
			continue
		}
		if err := w.WriteFragment(fragment); err != nil {
			res.Cancelled = true
			break
		}
		acc.WriteString(fragment)
		res.Fragments++
		metrics.StreamFragments.Inc()
	}
	res.Text = acc.String()
	return res
}
