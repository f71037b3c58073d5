package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type planEntry struct {
	Level              int    `yaml:"level"`
	Name               string `yaml:"name"`
	Cost               string `yaml:"cost"`
	DailyReturnPercent string `yaml:"daily_return_percent"`
}

type plansFile struct {
	Plans []planEntry `yaml:"plans"`
}

// DefaultPlans is the built-in tier table used when no plans file is present.
func DefaultPlans() models.PlanTable {
	ten := decimal.NewFromInt(10)
	return models.PlanTable{
		{Level: 1, Name: "VIP 1", Cost: decimal.NewFromInt(10), DailyReturnPercent: ten},
		{Level: 2, Name: "VIP 2", Cost: decimal.NewFromInt(15), DailyReturnPercent: ten},
		{Level: 3, Name: "VIP 3", Cost: decimal.NewFromInt(30), DailyReturnPercent: ten},
		{Level: 4, Name: "VIP 4", Cost: decimal.NewFromInt(50), DailyReturnPercent: ten},
		{Level: 5, Name: "VIP 5", Cost: decimal.NewFromInt(100), DailyReturnPercent: ten},
	}
}

// LoadPlans reads the plan table from a YAML file. An empty name or a missing
// file falls back to DefaultPlans.
func LoadPlans(plansFileName string) (models.PlanTable, error) {
	if plansFileName == "" {
		return DefaultPlans(), nil
	}

	var plansPath string
	if filepath.IsAbs(plansFileName) {
		plansPath = plansFileName
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		plansPath = filepath.Join(wd, plansFileName)
	}

	data, err := os.ReadFile(plansPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Info("Plans file not found, using built-in plan table", zap.String("file", plansFileName))
			return DefaultPlans(), nil
		}
		return nil, fmt.Errorf("unable to read %s: %w", plansFileName, err)
	}

	return ParsePlans(data)
}

// ParsePlans decodes and validates a YAML plan table.
func ParsePlans(data []byte) (models.PlanTable, error) {
	var file plansFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse plans: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("plans file defines no plans")
	}

	table := make(models.PlanTable, 0, len(file.Plans))
	for i, entry := range file.Plans {
		if entry.Level < 1 {
			return nil, fmt.Errorf("plan at index %d has invalid level %d", i, entry.Level)
		}
		if i > 0 && entry.Level <= file.Plans[i-1].Level {
			return nil, fmt.Errorf("plan at index %d: levels must be strictly increasing", i)
		}
		cost, err := decimal.NewFromString(entry.Cost)
		if err != nil || !cost.IsPositive() {
			return nil, fmt.Errorf("plan at index %d has invalid cost %q", i, entry.Cost)
		}
		pct, err := decimal.NewFromString(entry.DailyReturnPercent)
		if err != nil || pct.IsNegative() {
			return nil, fmt.Errorf("plan at index %d has invalid daily return %q", i, entry.DailyReturnPercent)
		}
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("VIP %d", entry.Level)
		}
		table = append(table, models.Plan{Level: entry.Level, Name: name, Cost: cost, DailyReturnPercent: pct})
	}

	return table, nil
}
