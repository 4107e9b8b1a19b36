package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MaxWireFrame 长度前缀可表示的最大帧
const MaxWireFrame = math.MaxUint16

// EffectiveLimit 返回实际生效的帧上限
//
// 配置值超出 u16 长度前缀的表示范围时截断为 MaxWireFrame。
func EffectiveLimit(configured int) int {
	if configured <= 0 || configured > MaxWireFrame {
		return MaxWireFrame
	}
	return configured
}

// WriteFrame 写入一帧
func WriteFrame(w io.Writer, payload []byte, limit int) error {
	if len(payload) > EffectiveLimit(limit) {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), EffectiveLimit(limit))
	}
	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload)))
	copy(buf[2:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一帧
//
// 超过 limit 的帧返回 ErrFrameTooLarge，调用方应关闭通道。
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n > EffectiveLimit(limit) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, EffectiveLimit(limit))
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
