// Copyright (C) 2021 the ccd authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package stats

import (
	"fmt"
	"math"
	"github.com/valyala/fastrand"
	"github.com/eoe-scrad/ccd/internal/qsort"
)

// Basic statistics on sample data arrays
type Stats struct {
	Min      float32 // Minimum
	Max      float32 // Maximum
	Mean     float32 // Mean (average)
	StdDev   float32 // Standard deviation (norm 2, sigma)
	Location float32 // Sampled median
}

// Number of random samples for the approximate median
const numMedianSamples = 16*1024

// Pretty print stats to string
func (s *Stats) String() string {
	return fmt.Sprintf("Min %.4g Max %.4g Mean %.4g StdDev %.4g Median %.4g",
		s.Min, s.Max, s.Mean, s.StdDev, s.Location)
}

// Calculate basic statistics for a data array
func Calc(data []float32) (s *Stats) {
	s=&Stats{}
	if len(data)==0 { return s }
	s.Min, s.Mean, s.Max=calcMinMeanMax(data)

	variance:=calcVariance(data, s.Mean)
	s.StdDev=float32(math.Sqrt(float64(variance)))

	s.Location=FastApproxMedian(data, numMedianSamples)
	return s
}

// Calculate minimum, mean and maximum of given data
func calcMinMeanMax(data []float32) (min, mean, max float32) {
	mmin, msum, mmax:=data[0], float64(0), data[0]
	for _,v := range data {
		if v<mmin { mmin=v }
		if v>mmax { mmax=v }
		msum+=float64(v)
	}
	return mmin, float32(msum/float64(len(data))), mmax
}

// Calculate variance of given data around the given mean
func calcVariance(data []float32, mean float32) float32 {
	sum:=float64(0)
	for _,v := range data {
		diff:=float64(v-mean)
		sum+=diff*diff
	}
	return float32(sum/float64(len(data)))
}

// Calculates fast approximate median of the (presumably large) data by randomly
// subsampling the given number of values and taking the median of that.
// Data smaller than the sample count is measured exactly.
func FastApproxMedian(data []float32, numSamples int) float32 {
	if len(data)<=numSamples {
		samples:=make([]float32, len(data))
		copy(samples, data)
		return qsort.QSelectMedianFloat32(samples)
	}
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	samples:=make([]float32, numSamples)
	for i,_:=range samples {
		index:=rng.Uint32n(max)
		samples[i]=data[index]
	}
	return qsort.QSelectMedianFloat32(samples)
}
