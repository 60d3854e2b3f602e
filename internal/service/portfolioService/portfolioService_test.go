package portfolioService

import (
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartRange(t *testing.T) {
	svc := &PortfolioService{cfg: &config.Config{ChartDefaultDays: 180}}

	t.Run("explicit range passes through", func(t *testing.T) {
		start, end, err := svc.chartRange(ts(1), ts(20))
		require.NoError(t, err)
		assert.True(t, start.Equal(ts(1)))
		assert.True(t, end.Equal(ts(20)))
	})

	t.Run("zero start opens the default window before end", func(t *testing.T) {
		start, end, err := svc.chartRange(time.Time{}, ts(20))
		require.NoError(t, err)
		assert.True(t, start.Equal(ts(20).AddDate(0, 0, -180)))
		assert.True(t, end.Equal(ts(20)))
	})

	t.Run("start equal to end is allowed", func(t *testing.T) {
		_, _, err := svc.chartRange(ts(5), ts(5))
		assert.NoError(t, err)
	})

	t.Run("start after end is rejected", func(t *testing.T) {
		_, _, err := svc.chartRange(ts(20), ts(1))
		require.Error(t, err)
		assert.True(t, service.IsValidationError(err))
		assert.Contains(t, err.Error(), "start cannot be after end")
	})
}
