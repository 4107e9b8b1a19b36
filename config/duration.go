package config

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Duration 配置文件中的时长
//
// 写成 "30s"、"250ms" 这样的字符串，或纳秒整数。输出总是字符串。
type Duration time.Duration

// UnmarshalJSON 解析字符串或整数形式
func (d *Duration) UnmarshalJSON(data []byte) error {
	var n int64
	if json.Unmarshal(data, &n) == nil {
		*d = Duration(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, data)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidDuration, s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 转为 time.Duration
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }
