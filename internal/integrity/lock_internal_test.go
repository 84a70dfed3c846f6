package integrity

import (
	"bytes"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisLockerLogsFailedRelease(t *testing.T) {
	var buf bytes.Buffer
	l := log.New("test")
	l.SetOutput(&buf)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	locker := NewRedisLocker(rdb, time.Second, l)
	locker.release("cinema:lock:movies:1", "token")

	assert.Contains(t, buf.String(), "releasing lock cinema:lock:movies:1 failed")
}
