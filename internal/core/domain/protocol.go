package domain

import "fmt"

// ProtocolEntry is one (topic, focus query) pair of an audit protocol.
type ProtocolEntry struct {
	// Topic is the label shown in the report.
	Topic string

	// Query is the focus query used for retrieval and generation.
	Query string

	// K overrides the number of retrieved passages. Zero uses the configured default.
	K int
}

// AuditProtocol is the ordered checklist applied to one document type.
// Order is meaningful: it becomes the report's reading order.
type AuditProtocol struct {
	// Type is the document type the protocol applies to.
	Type DocumentType

	// Entries are the topics in audit order.
	Entries []ProtocolEntry
}

// Len returns the number of topics.
func (p AuditProtocol) Len() int {
	return len(p.Entries)
}

// ProtocolFor returns the protocol for a document type.
// The returned value is a copy; callers may not mutate the static tables.
func ProtocolFor(t DocumentType) (AuditProtocol, error) {
	var entries []ProtocolEntry

	switch t {
	case DocumentTypeEdital:
		entries = editalProtocol
	case DocumentTypeETP:
		entries = etpProtocol
	case DocumentTypeTermoDeReferencia:
		entries = trProtocol
	case DocumentTypeProjetoBasico:
		entries = projetoBasicoProtocol
	default:
		return AuditProtocol{}, fmt.Errorf("%w: no protocol for document type %q", ErrInvalidInput, t)
	}

	copied := make([]ProtocolEntry, len(entries))
	copy(copied, entries)
	return AuditProtocol{Type: t, Entries: copied}, nil
}

//nolint:lll // Protocol questions are domain content and read better unwrapped.
var (
	editalProtocol = []ProtocolEntry{
		{Topic: "1. Objeto e Fundamentação", Query: "O objeto está claro e sem direcionamento? A Lei 14.133 foi citada?"},
		{Topic: "2. Habilitação (Restrições)", Query: "Há exigências restritivas (sede local, capital > 10%, vistoria obrigatória)? Verifique Art. 62-70.", K: 6},
		{Topic: "3. Qualificação Técnica", Query: "Os atestados exigidos são compatíveis e proporcionais?"},
		{Topic: "4. Orçamento e Reajuste", Query: "Há orçamento estimado ou referência ao TR? Há cláusula de reajuste obrigatória?"},
		{Topic: "5. Prazos e Modos de Disputa", Query: "Os prazos de publicidade e modo de disputa (aberto/fechado) estão corretos?"},
	}

	etpProtocol = []ProtocolEntry{
		{Topic: "1. Necessidade e PCA", Query: "Descreve a necessidade pública e previsão no PCA (Inciso I e II)?"},
		{Topic: "2. Requisitos e Quantidades", Query: "Define requisitos e justifica quantidades com memória (III e IV)?"},
		{Topic: "3. Levantamento de Mercado", Query: "Analisou alternativas de mercado e justificou a solução (V e VII)?", K: 5},
		{Topic: "4. Estimativa de Valor", Query: "Tem estimativa de valor com preços unitários (VI)?"},
		{Topic: "5. Parcelamento", Query: "Justificou o parcelamento ou não (Inciso VIII)? Cite Súmula 247 TCU."},
		{Topic: "6. Viabilidade", Query: "Posicionamento conclusivo sobre viabilidade (XIII)?"},
	}

	trProtocol = []ProtocolEntry{
		{Topic: "1. Definição do Objeto", Query: "Natureza, quantitativos e prazo (Art. 6, XXIII, a)?"},
		{Topic: "2. Fundamentação", Query: "Referência ao ETP correspondente (b)?"},
		{Topic: "3. Gestão e Fiscalização", Query: "Modelo de gestão e fiscalização do contrato (f)?"},
		{Topic: "4. Pagamento e Medição", Query: "Critérios claros de medição e pagamento (g)?"},
		{Topic: "5. Seleção e Orçamento", Query: "Critérios de seleção e adequação orçamentária (h, j)?", K: 5},
	}

	projetoBasicoProtocol = []ProtocolEntry{
		{Topic: "1. Engenharia (Sondagens)", Query: "Há levantamentos topográficos e sondagens (Art. 6, XXV, a)?"},
		{Topic: "2. Soluções Técnicas", Query: "As soluções técnicas estão detalhadas (b)?"},
		{Topic: "3. Cronograma e Métodos", Query: "Há cronograma físico-financeiro e métodos construtivos?"},
		{Topic: "4. Orçamento (BDI)", Query: "Orçamento detalhado com BDI discriminado (Dec. 7.983)?", K: 6},
	}
)
