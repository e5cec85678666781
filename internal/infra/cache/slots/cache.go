package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// SlotCache общий контракт кеша слотов, его реализуют Cache и Noop
type SlotCache interface {
	Get(ctx context.Context, professionalID, serviceID int64, date string) ([]domain.Slot, bool)
	Set(ctx context.Context, professionalID, serviceID int64, date string, slotList []domain.Slot)
	InvalidateDay(ctx context.Context, professionalID int64, date string)
	InvalidateProfessional(ctx context.Context, professionalID int64)
}

// Cache кеш вычисленных слотов в redis
//
// Кеш строго best-effort: любая ошибка redis деградирует в промах (на чтении)
// или в лог (на записи) и никогда не попадает в ответ пользователю.
// Ключ: slots:{professionalID}:{serviceID}:{date}
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger Logger
}

// NewCache создает кеш слотов поверх redis клиента
func NewCache(client *redis.Client, ttl time.Duration, logger Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func key(professionalID, serviceID int64, date string) string {
	return fmt.Sprintf("slots:%d:%d:%s", professionalID, serviceID, date)
}

// Get возвращает закешированные слоты и флаг попадания
func (c *Cache) Get(ctx context.Context, professionalID, serviceID int64, date string) ([]domain.Slot, bool) {
	raw, err := c.client.Get(ctx, key(professionalID, serviceID, date)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("slots cache: get failed for professional=%d service=%d date=%s: %v",
			professionalID, serviceID, date, err)
		return nil, false
	}

	var slots []domain.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Warn("slots cache: corrupted entry for professional=%d service=%d date=%s: %v",
			professionalID, serviceID, date, err)
		return nil, false
	}

	return slots, true
}

// Set кеширует слоты с настроенным TTL
func (c *Cache) Set(ctx context.Context, professionalID, serviceID int64, date string, slotList []domain.Slot) {
	raw, err := json.Marshal(slotList)
	if err != nil {
		c.logger.Warn("slots cache: marshal failed for professional=%d service=%d date=%s: %v",
			professionalID, serviceID, date, err)
		return
	}

	if err := c.client.Set(ctx, key(professionalID, serviceID, date), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("slots cache: set failed for professional=%d service=%d date=%s: %v",
			professionalID, serviceID, date, err)
	}
}

// InvalidateDay сбрасывает кеш всех услуг специалиста на дату
// Вызывается после любой записи, меняющей занятость дня
func (c *Cache) InvalidateDay(ctx context.Context, professionalID int64, date string) {
	pattern := fmt.Sprintf("slots:%d:*:%s", professionalID, date)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("slots cache: del %s failed: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("slots cache: scan %s failed: %v", pattern, err)
	}
}

// InvalidateProfessional сбрасывает кеш специалиста на все даты
// Вызывается при смене расписания, которая меняет слоты каждого дня
func (c *Cache) InvalidateProfessional(ctx context.Context, professionalID int64) {
	pattern := fmt.Sprintf("slots:%d:*", professionalID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("slots cache: del %s failed: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("slots cache: scan %s failed: %v", pattern, err)
	}
}

// Noop реализация кеша без хранилища - используется, когда redis выключен
type Noop struct{}

// NewNoop создает no-op кеш
func NewNoop() *Noop {
	return &Noop{}
}

// Get всегда промахивается
func (n *Noop) Get(ctx context.Context, professionalID, serviceID int64, date string) ([]domain.Slot, bool) {
	return nil, false
}

// Set ничего не делает
func (n *Noop) Set(ctx context.Context, professionalID, serviceID int64, date string, slotList []domain.Slot) {
}

// InvalidateDay ничего не делает
func (n *Noop) InvalidateDay(ctx context.Context, professionalID int64, date string) {}

// InvalidateProfessional ничего не делает
func (n *Noop) InvalidateProfessional(ctx context.Context, professionalID int64) {}
