package notify

// Label is the literal title and description for a message.
type Label struct {
	Title       string
	Description string
}

// Catalog maps message keys to literal labels. Keys missing from a
// catalog use the built-in pt-BR labels.
type Catalog map[Key]Label

var builtinLabels = Catalog{
	KeyRowAdded:        {"Linha adicionada", "Uma nova linha foi adicionada à tabela."},
	KeyRowRemoved:      {"Linha removida", "A última linha foi removida da tabela."},
	KeyColumnAdded:     {"Coluna adicionada", "Uma nova coluna foi adicionada à tabela."},
	KeyColumnRemoved:   {"Coluna removida", "A última coluna foi removida da tabela."},
	KeyExportStarted:   {"Gerando PDF", "Por favor, aguarde..."},
	KeyExportSucceeded: {"PDF Gerado com Sucesso", "Seu arquivo foi baixado."},
	KeyExportFailed:    {"Erro ao gerar PDF", "Ocorreu um erro ao gerar o PDF. Por favor, tente novamente."},
}

// DefaultCatalog returns a copy of the built-in labels.
func DefaultCatalog() Catalog {
	out := make(Catalog, len(builtinLabels))
	for key, label := range builtinLabels {
		out[key] = label
	}
	return out
}

// Message builds the notification for key.
func (c Catalog) Message(key Key) Notification {
	label, ok := c[key]
	if !ok {
		label, ok = builtinLabels[key]
	}
	if !ok {
		label = Label{Title: string(key)}
	}
	severity := SeverityDefault
	if key == KeyExportFailed {
		severity = SeverityDestructive
	}
	return Notification{
		Key:         key,
		Title:       label.Title,
		Description: label.Description,
		Severity:    severity,
	}
}
