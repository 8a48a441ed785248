package httpmw

import (
	"net/http"
	"net/url"
)

// AccessGate — edge-фильтр перед комнатой: пропускаем только запросы,
// чей Origin или Referer совпадает с allowedOrigin. Непрошедший websocket
// получает 403, обычный запрос — редирект на allowedOrigin.
// allowDev отключает фильтр целиком для локальной разработки.
func AccessGate(allowedOrigin string, allowDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := allowDev ||
				sameOrigin(r.Header.Get("Referer"), allowedOrigin) ||
				sameOrigin(r.Header.Get("Origin"), allowedOrigin)

			if !allowed {
				if r.Header.Get("Upgrade") == "websocket" {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				http.Redirect(w, r, allowedOrigin, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// sameOrigin сравнивает origin присланного URL с ожидаемым;
// кривое значение заголовка — просто не совпало.
func sameOrigin(raw, allowed string) bool {
	if raw == "" || allowed == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return u.Scheme+"://"+u.Host == allowed
}
