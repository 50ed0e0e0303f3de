// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adapterInflight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reeldoc_adapter_inflight",
		Help: "Currently admitted calls per adapter class",
	}, []string{"adapter"})

	adapterCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_adapter_calls_total",
		Help: "Adapter invocations by outcome",
	}, []string{"adapter", "outcome"}) // outcome=ok|error

	sttFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_stt_fallback_total",
		Help: "Transcriber fallbacks from the preferred engine to the alternate",
	}, []string{"from", "to"})

	llmTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_llm_tokens_total",
		Help: "Token usage reported by model backends",
	}, []string{"provider", "direction"}) // direction=prompt|completion

	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeldoc_cache_requests_total",
		Help: "Analysis cache lookups by outcome",
	}, []string{"cache", "outcome"}) // outcome=hit|miss|error
)

func AdapterAdmitted(adapter string) { adapterInflight.WithLabelValues(adapter).Inc() }
func AdapterReleased(adapter string) { adapterInflight.WithLabelValues(adapter).Dec() }

func IncAdapterCall(adapter, outcome string) {
	adapterCallsTotal.WithLabelValues(adapter, outcome).Inc()
}

func IncSTTFallback(from, to string) {
	sttFallbackTotal.WithLabelValues(from, to).Inc()
}

func AddLLMTokens(provider string, prompt, completion int64) {
	if prompt > 0 {
		llmTokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		llmTokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

func IncCacheRequest(cache, outcome string) {
	cacheRequestsTotal.WithLabelValues(cache, outcome).Inc()
}
