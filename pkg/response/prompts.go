package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/llm"
	"rolplay-assistant-be/pkg/text"
)

const errorSystemPrompt = `Eres un asistente conversacional experto en análisis de datos.
Responde SIEMPRE en **Markdown** con formato claro:
- Usa **negritas** para conceptos importantes.
- Usa ` + "`código`" + ` cuando sea necesario.
- Usa listas y tablas cuando sea útil.
- Separa las ideas con saltos de línea dobles para mayor legibilidad.`

// capabilities is what the assistant can look up, in the order it offers them.
var capabilities = []string{
	"Resultados por fecha específica",
	"Rendimiento de usuarios",
	"Análisis de actividades",
	"Desempeño por sucursal",
	"Rankings y máximos",
	"Análisis comparativos",
	"Análisis de tendencias",
	"Rankings de sucursales",
	"Rankings de actividades",
	"Análisis por períodos",
	"Rankings de usuarios",
	"Análisis de correlaciones",
	"Estadísticas generales",
	"Lista de usuarios por sucursal",
	"Progresión de usuarios a lo largo del tiempo",
	"Factores de éxito en actividades",
	"Recomendaciones personalizadas para usuarios",
}

var analystRules = []string{
	"Proporciona respuestas concisas pero completas",
	"Destaca las métricas más relevantes",
	"Si hay datos_utilizados disponibles, explícalos de manera clara solo si el usuario pregunta por ellos",
	"Identifica patrones importantes",
	"Sugiere mejoras cuando es apropiado",
	"Formatea los números para fácil lectura",
	"Evita información redundante",
	"Cuando hables de resultados extremos (mejores o peores), explica posibles razones para estos resultados",
	"Si los datos contienen recomendaciones, preséntalas de manera práctica y aplicable",
}

const dataProvenanceRule = `Ya que el usuario pregunta por los datos utilizados, menciona específicamente:
    - Cuántos registros se utilizaron
    - El rango de fechas considerado
    - Los valores máximos y mínimos encontrados
    - Cualquier filtro o transformación aplicada`

// dataQuestions mark a user asking how an answer was obtained.
var dataQuestions = []string{
	"qué datos", "cuáles datos", "qué información", "qué registros",
	"cómo lo calculaste", "cómo lo obtuviste", "de dónde", "qué usaste",
}

func asksForData(query string) bool {
	return text.ContainsAny(text.Normalize(query), dataQuestions...)
}

func conversationMessages(query string) []llm.Message {
	var b strings.Builder
	b.WriteString("Eres un asistente conversacional que:\n")
	b.WriteString("1. Mantiene un tono amigable y profesional\n")
	b.WriteString("2. Responde de manera natural\n")
	b.WriteString("3. Explica claramente los datos utilizados cuando están disponibles\n")
	b.WriteString("4. Si detecta que el usuario busca datos específicos, menciona que puede consultar:\n")
	for _, c := range capabilities {
		b.WriteString("   - ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return []llm.Message{llm.System(b.String()), llm.User(query)}
}

func errorMessages(query string, env analytics.Envelope) []llm.Message {
	return []llm.Message{
		llm.System(errorSystemPrompt),
		llm.User("Error al procesar la consulta: " + env.Error + "\nConsulta original: " + query),
	}
}

func analystMessages(query string, payload []byte) []llm.Message {
	var b strings.Builder
	b.WriteString("Eres un experto analista que:\n")
	for i, rule := range analystRules {
		writeRule(&b, i+1, rule)
	}
	if asksForData(query) && bytes.Contains(payload, []byte(`"datos_utilizados"`)) {
		writeRule(&b, len(analystRules)+1, dataProvenanceRule)
	}
	return []llm.Message{
		llm.System(b.String()),
		llm.User("Consulta: " + query + "\nDatos disponibles: " + string(payload)),
	}
}

func writeRule(b *strings.Builder, n int, rule string) {
	fmt.Fprintf(b, "%d. %s\n", n, rule)
}

// marshal encodes the envelope without escaping accents or markup.
func marshal(env analytics.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
