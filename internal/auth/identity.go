package auth

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrUnauthenticated 由 Require 在匿名访问时返回。
var ErrUnauthenticated = errors.New("authentication required")

// Identity 表示发起请求的身份，零值即匿名访客。
type Identity struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Anonymous 是不携带会话的请求身份。
var Anonymous = Identity{}

// IsAnonymous 判断是否未关联用户。
func (i Identity) IsAnonymous() bool {
	return i.ID == 0
}

// Is 判断身份是否为指定 id 的用户。
func (i Identity) Is(userID uint) bool {
	return !i.IsAnonymous() && i.ID == userID
}

// Require 在身份关联用户时返回该身份，否则返回 ErrUnauthenticated。
func Require(i Identity) (Identity, error) {
	if i.IsAnonymous() {
		return Anonymous, ErrUnauthenticated
	}
	return i, nil
}

// ParseUserID 将各种形式的用户 id（gin 上下文值、JSON 解码的 claims、路由参数）
// 统一转换为 uint。
func ParseUserID(value any) (uint, bool) {
	switch v := value.(type) {
	case uint:
		return v, v != 0
	case uint32:
		return uint(v), v != 0
	case uint64:
		return uint(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case int32:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case float64:
		if v <= 0 || v != math.Trunc(v) || v > math.MaxUint32 {
			return 0, false
		}
		return uint(v), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	default:
		return 0, false
	}
}
