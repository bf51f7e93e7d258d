package scorer

import (
	"testing"
	"time"

	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/model"
)

func BenchmarkScoreInput(b *testing.B) {
	rules, err := Compile(config.Default())
	if err != nil {
		b.Fatalf("compile: %v", err)
	}
	raw := "SELECT * FROM users WHERE name = '' OR 1=1 -- AND <script>alert(1)</script>"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rules.ScoreInput(raw)
	}
}

func BenchmarkFullLayerPass(b *testing.B) {
	rules, err := Compile(config.Default())
	if err != nil {
		b.Fatalf("compile: %v", err)
	}
	md := model.ActionMetadata{RequestsPerMinute: 200, IPCount: 10}
	at := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rules.ScoreInput("' OR 1=1 --")
		rules.ScoreBehavior("u1", "exploit access", md, at)
		rules.ScoreIntent("exploit access", "")
	}
}
