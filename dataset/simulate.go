package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"
)

// symptom describes a simulated Yes/No symptom column and its prevalence.
type symptom struct {
	name string
	p    float64
}

var simulatedSymptoms = []symptom{
	{"SwollenLymphNodes", 0.43}, {"ChestCongestion", 0.54}, {"ChillsSweats", 0.82},
	{"NasalCongestion", 0.77}, {"Sneeze", 0.55}, {"Fatigue", 0.9},
	{"SubjectiveFever", 0.68}, {"Headache", 0.86}, {"RunnyNose", 0.72},
	{"AbPain", 0.13}, {"ChestPain", 0.32}, {"Diarrhea", 0.11}, {"EyePn", 0.15},
	{"Insomnia", 0.55}, {"ItchyEye", 0.27}, {"EarPn", 0.22}, {"Hearing", 0.04},
	{"Pharyngitis", 0.83}, {"Breathless", 0.41}, {"ToothPn", 0.18},
	{"Vision", 0.03}, {"Vomit", 0.1}, {"Wheeze", 0.47},
}

// graded symptoms come with a Yes/No duplicate column.
var simulatedGraded = []struct {
	name, yn string
	p        []float64
}{
	{"Weakness", "WeaknessYN", []float64{0.07, 0.31, 0.46, 0.16}},
	{"CoughIntensity", "CoughYN2", []float64{0.06, 0.21, 0.49, 0.24}},
	{"Myalgia", "MyalgiaYN", []float64{0.11, 0.29, 0.43, 0.17}},
}

// Simulate generates a raw table shaped like the influenza symptom data: an identifier,
// activity level, rapid and PCR test results, derived scores and diagnosis names
// (all removed by DefaultExclusionRule), 31 symptom columns and body temperature.
// complete rows have every retained cell present; incomplete rows additionally carry
// one missing symptom or temperature cell and are spread through the table.
//
// Body temperature falls by 0.29 °F with a runny nose and rises with subjective fever
// and chills; nausea is driven by vomiting, abdominal pain and diarrhea. After Prepare
// the table has complete rows and 32 columns.
func Simulate(complete, incomplete int, seed uint64) (*Table, error) {
	rng := rand.New(rand.NewPCG(seed, 0x7f1))
	noise := distuv.Normal{Mu: 0, Sigma: 0.35, Src: rng}
	yes := func(p float64) bool { return rng.Float64() < p }
	either := func(b bool, a, z string) string {
		if b {
			return a
		}
		return z
	}
	yn := func(b bool) string { return either(b, "Yes", "No") }

	header := []string{"Unique.Visit", "ActivityLevel", "ActivityLevelF",
		"RapidFluA", "RapidFluB", "PCRFluA", "PCRFluB", "TransScore1", "ImpactScore",
		"TotalSymp1", "Dxname1", "Dxname2", "CoughYN"}
	for _, g := range simulatedGraded {
		header = append(header, g.name, g.yn)
	}
	for _, s := range simulatedSymptoms {
		header = append(header, s.name)
	}
	header = append(header, "Nausea", "BodyTemp")

	total := complete + incomplete
	gap := 0
	if incomplete > 0 {
		gap = total / incomplete
	}
	records := [][]string{header}
	for i := 0; i < total; i++ {
		values := make(map[string]string, len(header))
		activity := rng.IntN(11)
		values["Unique.Visit"] = fmt.Sprintf("%d_%d", 340+i, 17000000+rng.IntN(999999))
		values["ActivityLevel"] = strconv.Itoa(activity)
		values["ActivityLevelF"] = strconv.Itoa(activity)
		values["RapidFluA"] = either(yes(0.2), "Presence", "Absence")
		values["RapidFluB"] = either(yes(0.05), "Presence", "Absence")
		values["PCRFluA"] = either(yes(0.3), "Detected", "Not Detected")
		values["PCRFluB"] = either(yes(0.1), "Detected", "Not Detected")
		values["Dxname1"] = "Influenza"
		values["Dxname2"] = either(yes(0.1), "Acute pharyngitis", "")

		score := 0
		symptoms := make(map[string]bool, len(simulatedSymptoms))
		for _, s := range simulatedSymptoms {
			symptoms[s.name] = yes(s.p)
			values[s.name] = yn(symptoms[s.name])
			if symptoms[s.name] {
				score++
			}
		}
		for _, g := range simulatedGraded {
			level := pick(rng.Float64(), g.p)
			values[g.name] = SeverityLevels[level]
			values[g.yn] = yn(level > 0)
			if level > 0 {
				score++
			}
		}
		values["CoughYN"] = values["CoughYN2"]
		values["TransScore1"] = strconv.Itoa(score / 3)
		values["ImpactScore"] = strconv.Itoa(score)
		values["TotalSymp1"] = strconv.Itoa(score + 1)

		eta := -1.6 + 1.5*indicator(symptoms["Vomit"]) + 0.8*indicator(symptoms["AbPain"]) +
			0.5*indicator(symptoms["Diarrhea"]) + 0.4*indicator(symptoms["Fatigue"])
		values["Nausea"] = yn(yes(1 / (1 + math.Exp(-eta))))

		temp := 98.9 - 0.29*indicator(symptoms["RunnyNose"]) +
			0.4*indicator(symptoms["SubjectiveFever"]) + 0.3*indicator(symptoms["ChillsSweats"]) +
			noise.Rand()
		values["BodyTemp"] = strconv.FormatFloat(math.Round(temp*10)/10, 'f', 1, 64)

		if gap > 0 && i%gap == gap-1 && (i+1)/gap <= incomplete {
			if (i/gap)%2 == 0 {
				values["BodyTemp"] = "NA"
			} else {
				values["Headache"] = ""
			}
		}

		row := make([]string, len(header))
		for j, h := range header {
			row[j] = values[h]
		}
		records = append(records, row)
	}
	return FromRecords(records)
}

func pick(u float64, probs []float64) int {
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(probs) - 1
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
