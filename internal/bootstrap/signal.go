// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	"github.com/AccelByte/extend-lifecycle-engine/internal/config"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SignalDependencies holds the clients the metrics sources read from.
type SignalDependencies struct {
	RedisClient       redis.UniversalClient
	StatisticsService *social.UserStatisticService
	Namespace         string
}

// InitSignalAggregator builds the aggregator over the metrics source named by
// SIGNAL_SOURCE. The returned SessionRecorder is nil unless the engine owns the
// behavioral data (the Redis source).
func InitSignalAggregator(
	source string,
	pipelineConfig *pipeline.Config,
	deps SignalDependencies,
) (*signal.Aggregator, service.SessionRecorder, error) {
	switch source {
	case config.SignalSourceRedis:
		store := service.NewRedisBehaviorStore(deps.RedisClient)
		logrus.Info("reading behavioral signals from Redis behavior store")
		return signal.NewAggregator(store), store, nil

	case config.SignalSourceStatistic:
		if deps.StatisticsService == nil {
			return nil, nil, fmt.Errorf("statistic signal source needs the AccelByte statistic service")
		}
		mapper := signal.NewMetricMapperFromConfig(pipelineConfig.Signals.StatCodes)
		if mapper.Count() == 0 {
			logrus.Warn("statistic signal source has no stat codes configured; every metric will read as zero")
		}
		src := service.NewStatisticMetricsSource(deps.StatisticsService, mapper, service.StatisticServiceConfig{
			Namespace: deps.Namespace,
		})
		logrus.Infof("reading behavioral signals from %d AccelByte statistics", mapper.Count())
		return signal.NewAggregator(src), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown signal source %q", source)
}
