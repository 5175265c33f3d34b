// Package cachekeys is the single place that builds Redis keys and channel
// names for Livermore's cache contract. No other package constructs these
// strings directly; every key that crosses an exchange boundary includes
// the exchange_id so that data from different exchanges sharing one Redis
// can never be confused.
package cachekeys

import "fmt"

// Candles returns the sorted-set key holding candles for one
// (exchange, symbol, timeframe).
func Candles(exchangeID int, symbol string, timeframe string) string {
	return fmt.Sprintf("candles:%d:%s:%s", exchangeID, symbol, timeframe)
}

// CandlesExchangePrefix returns the SCAN pattern matching every candle key
// for an exchange, used by the cache-trust dump phase.
func CandlesExchangePrefix(exchangeID int) string {
	return fmt.Sprintf("candles:%d:*", exchangeID)
}

// Indicator returns the string key holding the latest indicator value for
// (exchange, symbol, timeframe, type).
func Indicator(exchangeID int, symbol, timeframe, indicatorType string) string {
	return fmt.Sprintf("indicator:%d:%s:%s:%s", exchangeID, symbol, timeframe, indicatorType)
}

// Ticker returns the string key holding the latest ticker for
// (exchange, symbol).
func Ticker(exchangeID int, symbol string) string {
	return fmt.Sprintf("ticker:%d:%s", exchangeID, symbol)
}

// CandleCloseChannel returns the pub/sub channel a candle close is
// published on.
func CandleCloseChannel(exchangeID int, symbol, timeframe string) string {
	return fmt.Sprintf("channel:candle:close:%d:%s:%s", exchangeID, symbol, timeframe)
}

// AlertsChannel returns the cross-exchange alert bus channel for one
// exchange.
func AlertsChannel(exchangeID int) string {
	return fmt.Sprintf("channel:alerts:exchange:%d", exchangeID)
}

// WarmupScheduleKey returns the key holding the persisted WarmupSchedule
// JSON blob for one exchange.
func WarmupScheduleKey(exchangeID int) string {
	return fmt.Sprintf("exchange:%d:warm-up-schedule:symbols", exchangeID)
}

// WarmupStatsKey returns the key holding the live WarmupStats JSON blob.
func WarmupStatsKey(exchangeID int) string {
	return fmt.Sprintf("exchange:%d:warm-up-schedule:stats", exchangeID)
}

// InstanceStatusKey returns the TTL'd key holding one exchange's
// InstanceStatus JSON blob.
func InstanceStatusKey(exchangeID int) string {
	return fmt.Sprintf("exchange:%d:status", exchangeID)
}

// ActivityStreamKey returns the Redis Stream key for one exchange's
// activity log.
func ActivityStreamKey(exchangeID int) string {
	return fmt.Sprintf("exchange:%d:activity", exchangeID)
}

// CommandsChannel returns the pub/sub channel an operator UI publishes
// control commands on for one user.
func CommandsChannel(userID int64) string {
	return fmt.Sprintf("livermore:commands:%d", userID)
}

// CommandResponseChannel returns the channel a command's result is
// published back on.
func CommandResponseChannel(userID int64, correlationID string) string {
	return fmt.Sprintf("livermore:commands:%d:response:%s", userID, correlationID)
}
