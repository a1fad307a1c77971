package llm

import (
	"strings"
)

const freeFormInstruction = "Extraia os dados desta imagem como tabela e retorne em formato JSON."

// MaterialColumn is the column the constrained prompt asks the model to
// correct against the raw-material list.
const MaterialColumn = "materia_prima"

// BuildPrompt composes the single instruction sent with the image. Without a
// material list the model picks its own columns; with one, the columns are
// fixed and near matches in MaterialColumn are snapped to the closest listed name.
func BuildPrompt(req ExtractRequest) string {
	materials := cleanMaterials(req.Materials)
	if len(materials) == 0 {
		return freeFormInstruction
	}

	parts := []string{
		"Extraia os dados desta folha manuscrita como tabela e retorne SOMENTE um array JSON de objetos.",
		"Cada linha da folha vira um objeto com as chaves \"hora\", \"" + MaterialColumn + "\" e \"quantidade\", todas como texto.",
		"Lista de matérias-primas válidas: " + strings.Join(materials, ", ") + ".",
		"Se o valor escrito em \"" + MaterialColumn + "\" for parecido com um item da lista, substitua pelo item mais próximo da lista.",
		"Não inclua comentários nem texto fora do JSON.",
	}
	return strings.Join(parts, " ")
}

func cleanMaterials(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}
