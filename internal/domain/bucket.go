package domain

import "time"

// DefaultRetention — окно хранения сообщений и эпоха ротации псевдонимов.
const DefaultRetention = 72 * time.Hour

// BucketOf возвращает номер временной корзины для ts (unix millis).
// Одна и та же функция используется хранилищем и деривацией имён,
// чтобы окна не разъезжались при смене retention.
func BucketOf(ts int64, window time.Duration) int64 {
	return ts / window.Milliseconds()
}
