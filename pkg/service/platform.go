package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclient/fulfillment"
	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclientmodels"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclient/user_statistic"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclientmodels"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

type EntitlementService struct {
	fulfillmentClient *platform.FulfillmentService
	cfg               EntitlementServiceConfig
}

type EntitlementServiceConfig struct {
	Namespace string
}

func NewEntitlementService(
	fulfillmentClient *platform.FulfillmentService,
	cfg EntitlementServiceConfig,
) *EntitlementService {
	return &EntitlementService{
		fulfillmentClient: fulfillmentClient,
		cfg:               cfg,
	}
}

func (s *EntitlementService) GrantEntitlement(
	ctx context.Context,
	userID string,
	itemID string,
	quantity int,
) error {
	qnty := int32(quantity)

	namespace := s.cfg.Namespace
	fulfillmentService := s.fulfillmentClient

	input := &fulfillment.FulfillItemParams{
		Namespace: namespace,
		UserID:    userID,
		Body: &platformclientmodels.FulfillmentRequest{
			ItemID:   itemID,
			Quantity: &qnty,
			Source:   platformclientmodels.FulfillmentRequestSourceREWARD,
		},
		Context: ctx,
	}

	fulfillmentResponse, err := fulfillmentService.FulfillItemShort(input)

	if err != nil {
		return fmt.Errorf("failed to fulfill item: %w", err)
	}

	if fulfillmentResponse == nil {
		return fmt.Errorf("could not grant item to user: empty response")
	}

	return nil
}

type StatisticService struct {
	statisticsService *social.UserStatisticService
	cfg               StatisticServiceConfig
}

type StatisticServiceConfig struct {
	Namespace string
}

func NewStatisticService(
	statisticsService *social.UserStatisticService,
	cfg StatisticServiceConfig,
) *StatisticService {
	return &StatisticService{
		statisticsService: statisticsService,
		cfg:               cfg,
	}
}

func (s *StatisticService) IncrementUserStat(ctx context.Context, userID, statCode string, inc float64) error {
	namespace := s.cfg.Namespace
	statisticsService := s.statisticsService

	input := &user_statistic.IncUserStatItemValueParams{
		Namespace: namespace,
		UserID:    userID,
		StatCode:  statCode,
		Body: &socialclientmodels.StatItemInc{
			Inc: inc,
		},
		Context: ctx,
	}

	_, err := statisticsService.IncUserStatItemValueShort(input)
	if err != nil {
		return fmt.Errorf("failed to increment user %s statistic %s: %w", userID, statCode, err)
	}

	return nil
}

// StatisticMetricsSource reads behavioral metrics from AccelByte user statistics.
// Each configured stat code maps to one metric name.
type StatisticMetricsSource struct {
	statisticsService *social.UserStatisticService
	mapper            *signal.MetricMapper
	cfg               StatisticServiceConfig
}

func NewStatisticMetricsSource(
	statisticsService *social.UserStatisticService,
	mapper *signal.MetricMapper,
	cfg StatisticServiceConfig,
) *StatisticMetricsSource {
	return &StatisticMetricsSource{
		statisticsService: statisticsService,
		mapper:            mapper,
		cfg:               cfg,
	}
}

// GetUserMetrics implements MetricsSource. Statistics are current values, so asOf is not used.
func (s *StatisticMetricsSource) GetUserMetrics(ctx context.Context, userID string, asOf time.Time) (signal.Metrics, error) {
	statCodes := s.mapper.StatCodes()
	if len(statCodes) == 0 {
		return signal.Metrics{}, nil
	}

	codes := strings.Join(statCodes, ",")
	limit := int32(len(statCodes))
	input := &user_statistic.GetUserStatItemsParams{
		Namespace: s.cfg.Namespace,
		UserID:    userID,
		StatCodes: &codes,
		Limit:     &limit,
		Context:   ctx,
	}

	resp, err := s.statisticsService.GetUserStatItemsShort(input)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s statistics: %w", userID, err)
	}

	metrics := make(signal.Metrics, len(statCodes))
	if resp == nil {
		return metrics, nil
	}
	for _, item := range resp.Data {
		if item == nil || item.StatCode == nil || item.Value == nil {
			continue
		}
		if name, ok := s.mapper.Metric(*item.StatCode); ok {
			metrics[name] = *item.Value
		}
	}

	return metrics, nil
}
