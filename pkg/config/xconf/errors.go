package xconf

import "errors"

// 规则文件加载和解析相关错误。
var (
	// ErrEmptyPath 表示规则文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的文件格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 表示文件读取失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 表示文件内容无法解析为 YAML/JSON。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 表示内容与规则文件结构不匹配。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrInvalidPolicy 表示策略名无效。
	ErrInvalidPolicy = errors.New("xconf: invalid policy")

	// ErrInvalidSortMode 表示排序模式无效。
	ErrInvalidSortMode = errors.New("xconf: invalid sort mode")

	// ErrInvalidRange 表示规则范围无效。
	ErrInvalidRange = errors.New("xconf: invalid range")
)
