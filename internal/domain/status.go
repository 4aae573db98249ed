package domain

// DueStatus — статус задачи относительно due date.
//
// Статус производный и нигде не хранится:
//
//	NO_DUE_DATE        — due date не задан
//	NOT_DUE            — сегодня раньше дня due date
//	DUE                — с дня due date до конца окна
//	OVERDUE            — окно закрылось
type DueStatus string

const (
	// DueStatusNoDueDate — due date не задан.
	DueStatusNoDueDate DueStatus = "NO_DUE_DATE"

	// DueStatusNotDue — срок ещё не наступил.
	DueStatusNotDue DueStatus = "NOT_DUE"

	// DueStatusDue — пора выполнять.
	DueStatusDue DueStatus = "DUE"

	// DueStatusOverdue — просрочено.
	DueStatusOverdue DueStatus = "OVERDUE"
)

// AllDueStatuses — все статусы в порядке срочности.
var AllDueStatuses = []DueStatus{
	DueStatusNoDueDate,
	DueStatusNotDue,
	DueStatusDue,
	DueStatusOverdue,
}

// String возвращает строковое представление DueStatus.
func (s DueStatus) String() string {
	return string(s)
}

// ParseDueStatus парсит строку в DueStatus. ok == false для неизвестных значений.
func ParseDueStatus(s string) (DueStatus, bool) {
	switch s {
	case "NO_DUE_DATE":
		return DueStatusNoDueDate, true
	case "NOT_DUE":
		return DueStatusNotDue, true
	case "DUE":
		return DueStatusDue, true
	case "OVERDUE":
		return DueStatusOverdue, true
	default:
		return "", false
	}
}
