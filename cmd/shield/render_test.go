package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/domain/notification"
	"github.com/bryanwahyu/aishield/internal/presenter"
)

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", barWidth), bar(0))
	assert.Equal(t, strings.Repeat("█", barWidth), bar(100))
	assert.Equal(t, strings.Repeat("█", 10)+strings.Repeat("░", 10), bar(50))
}

func TestRenderDescriptorPlain(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, true)

	r.Descriptor(presenter.Present(domain.Result{
		Classification: domain.ClassificationDanger,
		Confidence:     95,
		Summary:        "Phishing",
		Explanation:    "Fake prize",
		RedFlags:       []string{"urgency"},
	}))

	out := buf.String()
	assert.Contains(t, out, "✖ High Risk Detected")
	assert.Contains(t, out, "This appears to be a scam or phishing attempt")
	assert.Contains(t, out, "95%")
	assert.Contains(t, out, "What This Means\nFake prize")
	assert.Contains(t, out, "Red Flags Detected\n  • urgency")
	assert.NotContains(t, out, presenter.TitleTips)
	assert.Contains(t, out, presenter.Disclaimer)
}

func TestRenderNotificationAndError(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, true)

	r.Notification(notification.Event{Kind: notification.KindSuccess, Message: notification.MsgSafe, Timestamp: time.Now()})
	r.Error(domain.RateLimited())

	assert.Equal(t,
		"[success] Analysis complete - Content appears safe\n✖ Too many requests. Please wait a moment and try again.\n",
		buf.String())
}
