package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilaritySelf(t *testing.T) {
	// 非零向量与自身的余弦相似度为 1
	v := []float32{0.3, -1.2, 4.5}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	// 零范数向量定义为 0，不允许除零
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}
	assert.Equal(t, 0.0, CosineSimilarity(zero, v))
	assert.Equal(t, 0.0, CosineSimilarity(v, zero))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarityOpposite(t *testing.T) {
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineSimilarityLengthMismatch(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestMeanVector(t *testing.T) {
	mean := MeanVector([][]float32{
		{1, 0},
		{0, 1},
	})
	assert.Equal(t, []float32{0.5, 0.5}, mean)
}

func TestMeanVectorEmpty(t *testing.T) {
	assert.Nil(t, MeanVector(nil))
}

func TestMeanVectorSingle(t *testing.T) {
	assert.Equal(t, []float32{2, 4}, MeanVector([][]float32{{2, 4}}))
}
