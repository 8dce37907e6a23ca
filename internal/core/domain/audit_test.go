package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want VerdictClass
	}{
		{"irregular", "🚨 ALERTA VERMELHO: exigência de capital social de 30%.", VerdictIrregular},
		{"caveat with selector", "⚠️ RESSALVA: falta detalhamento.", VerdictCaveat},
		{"caveat without selector", "⚠ RESSALVA - prazo não informado", VerdictCaveat},
		{"compliant", "✅ CONFORME. O objeto está claro.", VerdictCompliant},
		{"bold markdown", "**🚨 ALERTA VERMELHO**: sede local exigida", VerdictIrregular},
		{"heading", "### ✅ CONFORME\nNada a apontar.", VerdictCompliant},
		{"leading whitespace", "\n\n  ✅ CONFORME", VerdictCompliant},
		{"keyword without emoji", "RESSALVA: faltam dados", VerdictCaveat},
		{"lower case", "✅ conforme: ok", VerdictCompliant},
		{"marker only", "🚨 ALERTA VERMELHO", VerdictIrregular},
		{"negated compliant", "NÃO CONFORME: há restrição", VerdictUnclassified},
		{"keyword glued to word", "✅ CONFORMEMENTE", VerdictUnclassified},
		{"marker later in text", "Análise: o item está ✅ CONFORME", VerdictUnclassified},
		{"empty", "", VerdictUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVerdict(tt.text))
		})
	}
}

func TestVerdictMarkers(t *testing.T) {
	markers := VerdictMarkers()
	assert.Len(t, markers, 3)
	assert.Equal(t, "🚨 ALERTA VERMELHO", markers[0])

	for _, class := range []VerdictClass{VerdictIrregular, VerdictCaveat, VerdictCompliant} {
		assert.Equal(t, class, ParseVerdict(class.Marker()+": x"))
	}
	assert.Empty(t, VerdictUnclassified.Marker())
}

func TestAuditResult_Counts(t *testing.T) {
	result := AuditResult{
		Entries: []AuditEntry{
			{Topic: "1", Class: VerdictIrregular},
			{Topic: "2", Class: VerdictCompliant},
			{Topic: "3", Class: VerdictIrregular},
			{Topic: "4", Class: VerdictUnclassified, Failure: KindRateLimited},
		},
	}

	assert.Equal(t, 2, result.Count(VerdictIrregular))
	assert.Equal(t, 1, result.Count(VerdictCompliant))
	assert.Equal(t, 0, result.Count(VerdictUnclassified))
	assert.Equal(t, 1, result.Failures())
	assert.True(t, result.Entries[3].IsDiagnostic())
	assert.False(t, result.Entries[0].IsDiagnostic())
}
