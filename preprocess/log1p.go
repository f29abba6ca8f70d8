package preprocess

import (
	"math"

	"github.com/carbocation/scgenomisc/anndata"
	log "github.com/sirupsen/logrus"
)

// Log1p logarithmizes the data matrix in place, X = ln(1 + X), and records
// the transform under uns["log1p"].
func Log1p(ad *anndata.AnnData) {
	if _, done := ad.Uns["log1p"]; done {
		log.Warnln("adata.X seems to be already log-transformed.")
	}

	ad.X.Apply(func(_, _ int, v float64) float64 {
		return math.Log1p(v)
	}, ad.X)

	ad.Uns["log1p"] = map[string]interface{}{"base": nil}
}
