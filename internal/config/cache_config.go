package config

type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

type CacheConfig interface {
	GetManagementCacheBackend() CacheBackend
	GetManagementCacheKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Cache struct{}

var _ CacheConfig = Cache{}

func (Cache) GetManagementCacheBackend() CacheBackend {
	if GetEnv("MANAGEMENT_CACHE", string(CacheMemory)) == string(CacheRedis) {
		return CacheRedis
	}
	return CacheMemory
}

func (Cache) GetManagementCacheKey() string {
	return GetEnv("MANAGEMENT_CACHE_KEY", "auth-gateway:management-token")
}

func (Cache) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Cache) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Cache) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
