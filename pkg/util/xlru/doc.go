// Package xlru 提供有界 LRU 缓存，供判定结果缓存使用。
//
// 基于 hashicorp/golang-lru/v2 的非过期实现，TTL 在读取时惰性判断，
// 不启动任何后台 goroutine，因此无需 Close 即可安全丢弃。
//
// 基本用法：
//
//	cache, err := xlru.New[netip.Addr, Verdict](xlru.Config{Size: 4096})
//	if err != nil {
//	    return err
//	}
//	cache.Set(addr, v)
//	if v, ok := cache.Get(addr); ok {
//	    // 命中
//	}
//
// 规则变更后应调用 Purge 清空全部条目，缓存本身不感知规则集。
//
// 所有方法并发安全。
package xlru
