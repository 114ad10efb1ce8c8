package workout

import (
	"fmt"
	"strings"

	"github.com/illegalcall/fitcoach/internal/models"
)

// SystemPrompt sets the model's role for every generation request.
const SystemPrompt = "Eres un entrenador personal experto especializado en crear rutinas de entrenamiento personalizadas."

// NoInjuriesPlaceholder replaces the injury list when none were given.
const NoInjuriesPlaceholder = "Ninguna"

// The header line and the blank line before the JSON example carry trailing
// spaces that are part of the prompt text.
const userPromptTemplate = "Genera una rutina de entrenamiento detallada con las siguientes especificaciones:    \n" +
	`    - Objetivo: %s
    - Nivel de experiencia: %s
    - Equipo disponible: %s
    - Tiempo disponible: %d minutos
    - Áreas de enfoque: %s
    - Lesiones/Limitaciones: %s
` + "    \n" + `    Por favor, proporciona la rutina en formato JSON con la siguiente estructura:
    {
        "name": "Nombre de la rutina",
        "description": "Descripción detallada",
        "exercises": [
            {
                "name": "Nombre del ejercicio",
                "sets": número_de_series,
                "reps": "rango_de_repeticiones",
                "rest": "tiempo_de_descanso",
                "notes": "notas_técnicas"
            }
        ],
        "tips": ["consejos_importantes"],
        "progression": ["sugerencias_de_progresión"]
    }
    `

// FormatPrompt renders the user instruction for a workout request. Lists are
// joined in the order given, so equal prompts always yield identical text.
func FormatPrompt(p models.WorkoutPrompt) string {
	injuries := NoInjuriesPlaceholder
	if len(p.Injuries) > 0 {
		injuries = strings.Join(p.Injuries, ", ")
	}

	return fmt.Sprintf(userPromptTemplate,
		p.Goal,
		p.ExperienceLevel,
		strings.Join(p.EquipmentAvailable, ", "),
		p.TimeAvailable,
		strings.Join(p.FocusAreas, ", "),
		injuries,
	)
}
