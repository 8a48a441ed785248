package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/relay-service/internal/domain"
)

const prefixLen = 12

// Deriver вычисляет стабильный псевдоним клиента без аутентификации.
// Приоритет — отпечаток соединения (JA4 из доверенного заголовка edge-прокси);
// fallback — HMAC-SHA256 над стабильными заголовками + номером 72h-корзины,
// так что имя стабильно внутри окна и ротируется на его границе.
type Deriver struct {
	salt     []byte
	window   time.Duration
	fpHeader string

	now func() time.Time
}

func NewDeriver(salt string, window time.Duration, fingerprintHeader string) *Deriver {
	return &Deriver{
		salt:     []byte(salt),
		window:   window,
		fpHeader: fingerprintHeader,
		now:      time.Now,
	}
}

// Derive — детерминированно: одинаковый набор заголовков в одной корзине
// даёт одинаковое имя. Клиент вовсе без заголовков вырождается в общий
// псевдоним — известное ограничение, не ошибка.
func (d *Deriver) Derive(h http.Header) string {
	if d.fpHeader != "" {
		if fp := strings.TrimSpace(h.Get(d.fpHeader)); fp != "" {
			return "ja4_" + clip(fp)
		}
	}
	return d.deriveAt(h, d.now().UnixMilli())
}

func (d *Deriver) deriveAt(h http.Header, ts int64) string {
	bucket := domain.BucketOf(ts, d.window)

	parts := []string{
		h.Get("User-Agent"),
		h.Get("Accept"),
		h.Get("Accept-Language"),
		h.Get("Accept-Encoding"),
		strconv.FormatInt(bucket, 10),
	}

	mac := hmac.New(sha256.New, d.salt)
	mac.Write([]byte(strings.Join(parts, "\n")))
	digest := hex.EncodeToString(mac.Sum(nil))

	return "anon_" + clip(digest)
}

func clip(s string) string {
	if len(s) > prefixLen {
		return s[:prefixLen]
	}
	return s
}
