// Package calendar — календарные часы QC-отдела.
//
// Все вычисления due date ведутся в одной канонической временной зоне
// (QC_TIMEZONE). Clock переводит мгновения в эту зону и считает границы
// локальных суток, поэтому "день" всегда означает локальный календарный день,
// а не сутки по UTC.
//
// Зона передаётся явно при создании Clock, глобального состояния нет.
package calendar
