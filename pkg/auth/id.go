package auth

import (
	"errors"
	"hash/fnv"
	"os"

	"github.com/sony/sonyflake"
)

// Sonyflake 分布式ID生成器
// ID结构：1位保留 + 39位时间戳 + 8位机器ID + 16位序列号，整体按时间递增
type Sonyflake struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake 创建ID生成器
// 默认使用内网IP作为机器ID，拿不到内网IP时退化为主机名哈希
func NewSonyflake() *Sonyflake {
	sf, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		sf, _ = sonyflake.New(sonyflake.Settings{MachineID: hostnameMachineID})
	}
	return &Sonyflake{sf: sf}
}

func hostnameMachineID() (uint16, error) {
	name, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return uint16(h.Sum32()), nil
}

// GenerateID 生成一个唯一的分布式ID
func (s *Sonyflake) GenerateID() (uint64, error) {
	if s.sf == nil {
		return 0, errors.New("sonyflake not initialized")
	}
	return s.sf.NextID()
}
