// Package parsing 把 PDF/JSON 抓取的赛程行规范化为 Session/Event 及维度实体。
package parsing

import (
	"errors"
	"fmt"
)

// ErrMalformedRow 行缺少必填字段或日期/时间无法解析
var ErrMalformedRow = errors.New("malformed schedule row")

// MalformedRowError 携带行号与字段的坏行错误，errors.Is(err, ErrMalformedRow) 为真
type MalformedRowError struct {
	Index int    // 行号（从0开始），未知时为 -1
	Code  string // Session Code，可能为空
	Field string // 出错字段
	Err   error  // 底层错误
}

func (e *MalformedRowError) Error() string {
	msg := fmt.Sprintf("第%d行", e.Index)
	if e.Code != "" {
		msg += fmt.Sprintf("（%s）", e.Code)
	}
	msg += fmt.Sprintf("字段[%s]无效", e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// Is 让所有坏行错误都能匹配 ErrMalformedRow
func (e *MalformedRowError) Is(target error) bool { return target == ErrMalformedRow }

func malformed(field string, err error) *MalformedRowError {
	return &MalformedRowError{Index: -1, Field: field, Err: err}
}
