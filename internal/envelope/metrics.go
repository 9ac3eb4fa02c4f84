package envelope

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bodySealTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "identikit",
		Subsystem: "envelope",
		Name:      "body_seal_total",
		Help:      "Body AEAD passes performed by Seal.",
	})
	cekWrapTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "identikit",
		Subsystem: "envelope",
		Name:      "cek_wrap_total",
		Help:      "Per-recipient content key wraps performed by Seal.",
	})
	cekUnwrapFailTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "identikit",
		Subsystem: "envelope",
		Name:      "cek_unwrap_failure_total",
		Help:      "Recipient entries whose content key failed to unwrap.",
	})
)
