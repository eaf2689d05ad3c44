package binance

import (
	"context"
	"errors"

	"mmbot/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/common"
)

// classify 将 SDK 错误映射为 exchange.Error。
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return exchange.NewError(exchange.KindTransient, op, 0, err)
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return exchange.NewError(kindForCode(apiErr.Code), op, apiErr.Code, err)
	}
	return exchange.NewError(exchange.KindTransient, op, 0, err)
}

// kindForCode 依据 Binance 错误码分类：
// https://developers.binance.com/docs/derivatives/usds-margined-futures/error-code
func kindForCode(code int64) exchange.Kind {
	switch {
	case code == -1003 || code == -1015 || code == -1001 || code == -1007 || code == -1021:
		return exchange.KindTransient
	case code == -2011 || code == -2013:
		return exchange.KindNotFound
	case code == -1002 || code == -1022 || code == -2014 || code == -2015:
		return exchange.KindAuth
	case code == -1121:
		return exchange.KindFatal
	case code == -2010 || code == -2019 || code == -2020 || code == -2021 || code == -2022:
		return exchange.KindRejected
	case code <= -1100 && code >= -1199:
		return exchange.KindRejected
	case code <= -4000 && code >= -4999:
		return exchange.KindRejected
	case code <= -5000 && code >= -5999:
		return exchange.KindRejected
	default:
		return exchange.KindTransient
	}
}
