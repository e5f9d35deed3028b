package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
)

const (
	chartWidth  = 800
	chartHeight = 400
	chartMargin = 50.0
)

var (
	chartBackground = color.White
	chartAxis       = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	chartLine       = color.RGBA{R: 37, G: 99, B: 235, A: 255}
	chartBar        = color.RGBA{R: 16, G: 185, B: 129, A: 255}
	chartWeakBar    = color.RGBA{R: 239, G: 68, B: 68, A: 255}
	chartPassLine   = color.RGBA{R: 245, G: 158, B: 11, A: 255}
)

func newChartContext(title string) *gg.Context {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(chartBackground)
	dc.DrawRectangle(0, 0, chartWidth, chartHeight)
	dc.Fill()

	dc.SetColor(chartAxis)
	dc.DrawStringAnchored(title, chartWidth/2, chartMargin/2, 0.5, 0.5)

	dc.SetLineWidth(1)
	dc.DrawLine(chartMargin, chartMargin, chartMargin, chartHeight-chartMargin)
	dc.DrawLine(chartMargin, chartHeight-chartMargin, chartWidth-chartMargin, chartHeight-chartMargin)
	dc.Stroke()

	for _, tick := range []float64{0, 25, 50, 75, 100} {
		y := scoreY(tick)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", tick), chartMargin-8, y, 1, 0.5)
	}
	return dc
}

func scoreY(score float64) float64 {
	plotHeight := float64(chartHeight) - 2*chartMargin
	return float64(chartHeight) - chartMargin - score/100*plotHeight
}

func drawPassLine(dc *gg.Context, passScore int) {
	y := scoreY(float64(passScore))
	dc.SetColor(chartPassLine)
	dc.SetDash(6, 4)
	dc.DrawLine(chartMargin, y, chartWidth-chartMargin, y)
	dc.Stroke()
	dc.SetDash()
}

func encodeChart(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPerformanceChart draws scores in chronological order. attempts must be oldest first.
func RenderPerformanceChart(attempts []*models.QuizAttempt, passScore int) ([]byte, error) {
	dc := newChartContext("Performance Over Time")
	drawPassLine(dc, passScore)

	if len(attempts) == 0 {
		dc.SetColor(chartAxis)
		dc.DrawStringAnchored("No quizzes yet", chartWidth/2, chartHeight/2, 0.5, 0.5)
		return encodeChart(dc)
	}

	plotWidth := float64(chartWidth) - 2*chartMargin
	step := plotWidth
	if len(attempts) > 1 {
		step = plotWidth / float64(len(attempts)-1)
	}
	x := func(i int) float64 {
		if len(attempts) == 1 {
			return chartMargin + plotWidth/2
		}
		return chartMargin + float64(i)*step
	}

	dc.SetColor(chartLine)
	dc.SetLineWidth(2)
	for i, a := range attempts {
		if i == 0 {
			dc.MoveTo(x(i), scoreY(a.Score))
		} else {
			dc.LineTo(x(i), scoreY(a.Score))
		}
	}
	dc.Stroke()

	for i, a := range attempts {
		dc.DrawCircle(x(i), scoreY(a.Score), 4)
		dc.Fill()
	}
	return encodeChart(dc)
}

// RenderTopicChart draws one bar per topic. Topics below the pass score are highlighted.
func RenderTopicChart(averages []models.WeakTopic, passScore int) ([]byte, error) {
	dc := newChartContext("Average Score by Topic")

	if len(averages) == 0 {
		dc.SetColor(chartAxis)
		dc.DrawStringAnchored("No quizzes yet", chartWidth/2, chartHeight/2, 0.5, 0.5)
		return encodeChart(dc)
	}

	plotWidth := float64(chartWidth) - 2*chartMargin
	slot := plotWidth / float64(len(averages))
	barWidth := slot * 0.6

	for i, a := range averages {
		left := chartMargin + float64(i)*slot + (slot-barWidth)/2
		top := scoreY(a.AverageScore)
		if a.AverageScore < float64(passScore) {
			dc.SetColor(chartWeakBar)
		} else {
			dc.SetColor(chartBar)
		}
		dc.DrawRectangle(left, top, barWidth, float64(chartHeight)-chartMargin-top)
		dc.Fill()

		dc.SetColor(chartAxis)
		dc.DrawStringAnchored(truncateLabel(a.Topic, int(slot/7)), left+barWidth/2, float64(chartHeight)-chartMargin+14, 0.5, 0.5)
	}
	drawPassLine(dc, passScore)
	return encodeChart(dc)
}

func truncateLabel(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

const (
	ChartPerformance = "performance"
	ChartTopics      = "topics"
)

// Chart renders the named chart for the user as PNG bytes.
func (s *AnalyticsService) Chart(ctx context.Context, userID uuid.UUID, kind string) ([]byte, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ChartPerformance:
		attempts, err := s.attempts.ListByUser(ctx, userID, 0)
		if err != nil {
			return nil, &StorageError{Op: "list attempts", Err: err}
		}
		for i, j := 0, len(attempts)-1; i < j; i, j = i+1, j-1 {
			attempts[i], attempts[j] = attempts[j], attempts[i]
		}
		return RenderPerformanceChart(attempts, user.PassScore)
	case ChartTopics:
		averages, err := s.attempts.TopicAverages(ctx, userID, 0)
		if err != nil {
			return nil, &StorageError{Op: "load topic averages", Err: err}
		}
		return RenderTopicChart(averages, user.PassScore)
	default:
		return nil, &NotFoundError{Message: "Unknown chart " + kind}
	}
}
