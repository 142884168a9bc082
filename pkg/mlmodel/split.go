package mlmodel

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hs170703/insightfull/pkg/models"
)

// DefaultSeed fixes the split so identical inputs give identical partitions
const DefaultSeed int64 = 42

// TestFraction returns the share of rows held out for testing. Small
// datasets hold out at least one row.
func TestFraction(n int) float64 {
	if n < 10 {
		if n <= 0 {
			return 0.1
		}
		return math.Max(0.1, 1/float64(n))
	}
	return 0.2
}

// PlanSplit computes the split plan. Classification is stratified only when
// every class has at least two samples and the test partition can hold one
// sample of each class.
func PlanSplit(n int, taskType models.TaskType, classCounts []int, seed int64) models.SplitPlan {
	plan := models.SplitPlan{TestFraction: TestFraction(n), Seed: seed}
	if !taskType.IsClassification() || len(classCounts) == 0 {
		return plan
	}
	minCount := classCounts[0]
	for _, c := range classCounts[1:] {
		minCount = min(minCount, c)
	}
	plan.Stratified = minCount >= 2 && float64(len(classCounts)) <= float64(n)*plan.TestFraction
	return plan
}

// testSize returns ceil(test_fraction * n)
func testSize(n int, fraction float64) int {
	return int(math.Ceil(fraction * float64(n)))
}

// SplitData partitions the prepared data according to the plan
func SplitData(prepared *PreparedData, plan models.SplitPlan) (*models.Split, error) {
	n := len(prepared.Target)
	if len(prepared.Features) != n {
		return nil, fmt.Errorf("feature rows %d do not match target length %d", len(prepared.Features), n)
	}
	nTest := testSize(n, plan.TestFraction)
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, models.NewValidationError(models.CodeInsufficientRows,
			"Not enough rows to split into training and test sets: got %d rows.", n)
	}

	rng := rand.New(rand.NewSource(plan.Seed))
	var trainIdx, testIdx []int
	if plan.Stratified {
		var err error
		trainIdx, testIdx, err = stratifiedIndices(prepared.Target, nTest, rng)
		if err != nil {
			return nil, err
		}
	} else {
		perm := rng.Perm(n)
		testIdx = perm[:nTest]
		trainIdx = perm[nTest:]
	}

	split := &models.Split{
		TrainIndices: trainIdx,
		TestIndices:  testIdx,
		Plan:         plan,
	}
	split.TrainFeatures, split.TrainTarget = gatherRows(prepared, trainIdx)
	split.TestFeatures, split.TestTarget = gatherRows(prepared, testIdx)
	return split, nil
}

func gatherRows(prepared *PreparedData, idx []int) ([][]float64, []float64) {
	features := make([][]float64, len(idx))
	target := make([]float64, len(idx))
	for i, row := range idx {
		features[i] = prepared.Features[row]
		target[i] = prepared.Target[row]
	}
	return features, target
}

// stratifiedIndices allocates test rows to classes in proportion to class
// size, keeping at least one row of every class on each side
func stratifiedIndices(target []float64, nTest int, rng *rand.Rand) ([]int, []int, error) {
	members := make(map[float64][]int)
	for i, code := range target {
		members[code] = append(members[code], i)
	}
	codes := make([]float64, 0, len(members))
	for code := range members {
		codes = append(codes, code)
	}
	sort.Float64s(codes)

	counts := make([]int, len(codes))
	for i, code := range codes {
		counts[i] = len(members[code])
	}
	alloc, err := allocateTest(counts, nTest)
	if err != nil {
		return nil, nil, err
	}

	var trainIdx, testIdx []int
	for i, code := range codes {
		rows := members[code]
		perm := rng.Perm(len(rows))
		for j, p := range perm {
			if j < alloc[i] {
				testIdx = append(testIdx, rows[p])
			} else {
				trainIdx = append(trainIdx, rows[p])
			}
		}
	}
	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })
	return trainIdx, testIdx, nil
}

// allocateTest splits nTest across classes by largest remainder, bounded to
// [1, count-1] per class
func allocateTest(counts []int, nTest int) ([]int, error) {
	total := 0
	for _, c := range counts {
		total += c
	}
	exact := make([]float64, len(counts))
	alloc := make([]int, len(counts))
	sum := 0
	for i, c := range counts {
		exact[i] = float64(c) * float64(nTest) / float64(total)
		alloc[i] = min(max(int(math.Floor(exact[i])), 1), c-1)
		sum += alloc[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	for sum != nTest {
		grow := sum < nTest
		sort.Slice(order, func(a, b int) bool {
			ra := exact[order[a]] - float64(alloc[order[a]])
			rb := exact[order[b]] - float64(alloc[order[b]])
			if ra == rb {
				return order[a] < order[b]
			}
			if grow {
				return ra > rb
			}
			return ra < rb
		})
		moved := false
		for _, i := range order {
			if grow && alloc[i] < counts[i]-1 {
				alloc[i]++
				sum++
				moved = true
				break
			}
			if !grow && alloc[i] > 1 {
				alloc[i]--
				sum--
				moved = true
				break
			}
		}
		if !moved {
			return nil, fmt.Errorf("cannot allocate %d test rows across %d classes", nTest, len(counts))
		}
	}
	return alloc, nil
}
