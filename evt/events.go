package evt

import (
	"github.com/asaskevich/EventBus"
)

const (
	// ApplicationStarted fires once on startup. Parameters: version, build time
	ApplicationStarted = "application:started"

	// BlockingEnabledEvent fires if blocking status will be changed. Parameter: boolean (enabled = true)
	BlockingEnabledEvent = "blocking:enabled"

	// BlockingCacheGroupChanged fires, if a list group is changed. Parameter: list type, group name, element count
	BlockingCacheGroupChanged = "blocking:cachingGroupChanged"

	// CachingDomainPrefetched fires if a domain will be prefetched, Parameter: domain name
	CachingDomainPrefetched = "caching:prefetched"

	// CachingPrefetchCacheHit fires, if a query result was found in the prefetch cache, Parameter: domain name
	CachingPrefetchCacheHit = "caching:prefetchCacheHit"

	// CachingResultCacheChanged fires if a result cache was changed, Parameter: new cache size
	CachingResultCacheChanged = "caching:resultCacheChanged"

	// CachingResultCacheHit fires, if a query result was found in the cache, Parameter: domain name
	CachingResultCacheHit = "caching:cacheHit"

	// CachingResultCacheMiss fires, if a query result was not found in the cache, Parameter: domain name
	CachingResultCacheMiss = "caching:cacheMiss"

	// CachingDomainsToPrefetchCountChanged fires, if a number of domains being prefetched changed, Parameter: new count
	CachingDomainsToPrefetchCountChanged = "caching:domainsToPrefetchCountChanged"

	// CachingFailedDownloadChanged fires, if a list source download failed. Parameter: source URL
	CachingFailedDownloadChanged = "caching:failedDownload"
)

// nolint
var evtBus = EventBus.New()

func Bus() EventBus.Bus {
	return evtBus
}
