package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/recurrence"
)

// Frequency — частота выполнения QC-задачи.
//
// Два режима:
//   - классический (WindowStart == nil): следующий due date считается
//     от фактического выполнения, текущий due date игнорируется;
//   - оконный (WindowStart != nil): due date привязан к абсолютным
//     occurrences правила и сдвигается только когда выполнение попало
//     в окно [due - WindowStart дней, due + WindowEnd дней].
type Frequency struct {
	// ID — уникальный идентификатор частоты.
	ID uuid.UUID `json:"id"`

	// Name — отображаемое имя ("Weekly", "Monthly on the 1st").
	Name string `json:"name"`

	// Slug — уникальный ключ для ссылок из seed-файла и CLI.
	Slug string `json:"slug"`

	// Recurrence — правило повторения.
	Recurrence recurrence.Rule `json:"recurrence"`

	// WindowStart — сколько дней до due date открывается окно.
	// nil — классический режим.
	WindowStart *int `json:"window_start"`

	// WindowEnd — сколько дней после due date окно ещё открыто.
	// Также задаёт порог OVERDUE.
	WindowEnd int `json:"window_end"`

	// NominalInterval — среднее число дней между occurrences.
	// Производное поле, пересчитывается при каждом изменении Recurrence.
	NominalInterval float64 `json:"nominal_interval"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsClassical возвращает true для классического режима (без окна).
func (f *Frequency) IsClassical() bool {
	return f.WindowStart == nil
}

// IsWindowBased возвращает true, если частота использует QC-окно.
func (f *Frequency) IsWindowBased() bool {
	return f.WindowStart != nil
}
