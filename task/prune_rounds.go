package tasks

import (
	"log"
	"time"

	"mastermind/database"
	"mastermind/models"
)

// PruneSettledRounds drops settled rounds, their markets and stale result
// rows past the retention window. Bets and ledger entries are never pruned;
// they are the audit trail.
func PruneSettledRounds(retention time.Duration) {
	cutoff := time.Now().Add(-retention)

	var ids []string
	if err := database.DB.Model(&models.Round{}).
		Where("status = ? AND runs_at < ?", models.RoundSettled, cutoff).
		Pluck("id", &ids).Error; err != nil {
		log.Println("❌ Failed to list prunable rounds:", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	if err := database.DB.Where("round_id IN ?", ids).Delete(&models.Market{}).Error; err != nil {
		log.Println("❌ Failed to delete old markets:", err)
		return
	}
	result := database.DB.Where("id IN ?", ids).Delete(&models.Round{})
	if result.Error != nil {
		log.Println("❌ Failed to delete old rounds:", result.Error)
		return
	}
	database.DB.Where("created_at < ?", cutoff).Delete(&models.GameResult{})

	log.Printf("✅ Pruned %d settled rounds older than %s\n", result.RowsAffected, retention)
}

// StartPruner runs PruneSettledRounds hourly with a 6h retention.
func StartPruner() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			<-ticker.C
			PruneSettledRounds(6 * time.Hour)
		}
	}()
}
