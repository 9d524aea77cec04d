// Package password 基于 bcrypt 的密码哈希。
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// MaxBytes 是 bcrypt 的输入上限，超出部分在哈希和校验时都会被截断。
const MaxBytes = 72

// Hasher 负责密码哈希与校验。
type Hasher struct {
	Cost int
}

// NewHasher 创建 Hasher，cost 超出 bcrypt 范围时使用 bcrypt.DefaultCost。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{Cost: cost}
}

// Hash 返回密码的 bcrypt 哈希，结果中包含算法与 cost。
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(password), h.cost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify 校验密码与哈希是否匹配，哈希格式错误时返回 false。
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(password)) == nil
}

// NeedsRehash 判断哈希的 cost 是否与当前配置不同。
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost()
}

func (h *Hasher) cost() int {
	if h == nil || h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > MaxBytes {
		b = b[:MaxBytes]
	}
	return b
}
