package scrape

import "sync/atomic"

// userAgents はリクエストごとにローテーションするUser-Agentのプール。
// 単純なbotブロック回避のための非機能的な強化策であり、
// 正しさの要件ではない。
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

var uaCounter atomic.Uint64

// nextUserAgent はプールから次のUser-Agentを返す。
// goroutineセーフなラウンドロビン。
func nextUserAgent() string {
	n := uaCounter.Add(1)
	return userAgents[int(n-1)%len(userAgents)]
}
