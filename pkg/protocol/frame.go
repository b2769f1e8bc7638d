package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPacketSize 单个数据包上限
const MaxPacketSize = 64 * 1024

// WriteFrame 写入 4 字节大端长度前缀和数据体
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w (%d bytes)", ErrPacketTooLarge, len(data))
	}
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一个带长度前缀的数据包
// 长度为 0 时返回空切片，调用方直接跳过
func ReadFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxPacketSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPacketTooLarge, length)
	}
	if length == 0 {
		return []byte{}, nil
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("读取数据失败: %w", err)
	}
	return data, nil
}
