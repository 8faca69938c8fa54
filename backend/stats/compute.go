// Package stats вычисляет сводки по сдачам и оценкам. Чтение идёт по
// снимку закоммиченных данных: два подряд вызова при параллельной
// записи могут увидеть разные итоги, это ожидаемо.
package stats

// Десять фиксированных корзин распределения баллов.
var ScoreRanges = []string{
	"0-10", "11-20", "21-30", "31-40", "41-50",
	"51-60", "61-70", "71-80", "81-90", "91-100",
}

// Distribution раскладывает баллы по корзинам: floor(score/10), с
// прижатием к последней корзине для 100.
func Distribution(scores []float64) []int {
	counts := make([]int, len(ScoreRanges))
	for _, s := range scores {
		idx := int(s / 10)
		if idx > 9 {
			idx = 9
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return counts
}

// Mean — среднее арифметическое; 0 для пустого набора. Политика
// «пусто = 0» намеренная, на неё опираются детерминированные тесты.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func Max(scores []float64) float64 {
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	return max
}

func Min(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	min := scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
	}
	return min
}

// Rate возвращает отношение part/total и 0 при total == 0.
func Rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
