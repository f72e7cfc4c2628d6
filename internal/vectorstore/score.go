package vectorstore

import "math"

// scoreFromDistance converts a backend distance into a similarity
// score in [0,1], higher is more similar. The mapping depends on the
// metric:
//
//   - cosine: distance is in [0,2] for normalized vectors, so
//     score = 1 - distance/2.
//   - euclidean: distance is unbounded, mapped asymptotically with
//     score = 1 / (1 + distance).
//   - dot: the backend convention reports the negative inner product
//     as distance, so score = -distance, clamped.
//
// Distance 0 yields score 1.0 on cosine and euclidean.
func scoreFromDistance(metric DistanceMetric, distance float32) float32 {
	switch metric {
	case MetricEuclidean:
		return 1.0 / (1.0 + distance)
	case MetricDot:
		return clamp01(-distance)
	default:
		return clamp01(1.0 - distance/2.0)
	}
}

// distanceFromSimilarity recovers the metric's distance from the
// cosine similarity chromem reports. chromem normalizes vectors on
// write and computes the normalized dot product, so:
//
//   - cosine: d = 1 - s
//   - euclidean: d = sqrt(2 - 2s) for unit vectors
//   - dot: d = -s (negative inner product convention)
//
// Routing every result through this function and scoreFromDistance
// keeps all score handling on one code path regardless of metric.
func distanceFromSimilarity(metric DistanceMetric, similarity float32) float32 {
	switch metric {
	case MetricEuclidean:
		d := 2.0 - 2.0*float64(similarity)
		if d < 0 {
			d = 0
		}
		return float32(math.Sqrt(d))
	case MetricDot:
		return -similarity
	default:
		return 1.0 - similarity
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
