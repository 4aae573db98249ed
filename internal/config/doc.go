// Package config — конфигурация сервисов QCSched.
//
// Параметры читаются из переменных окружения один раз при старте (Load).
// Если рядом есть файл .env (или путь задан в ENV_FILE), он подгружается
// через godotenv; уже выставленные переменные окружения не перетираются.
//
// Переменные:
//
//	DB_URL            — строка подключения PostgreSQL
//	RABBITMQ_URL      — адрес RabbitMQ (пусто — события не публикуются)
//	API_PORT          — порт REST API (по умолчанию 8080)
//	SCHED_PORT        — порт /healthz и /metrics демона (по умолчанию 8081)
//	QC_TIMEZONE       — каноническая зона QC-отдела (по умолчанию America/Toronto)
//	SWEEP_CRON        — расписание sweep (по умолчанию "*/5 * * * *")
//	FREQUENCIES_FILE  — YAML-файл с частотами для синхронизации при старте
//	MIGRATE_ON_START  — применять миграции при старте (true/false)
//	LOG_LEVEL, LOG_FORMAT — см. telemetry.SetupLogger
//	QCSCHED_API_URL   — адрес API для CLI
package config
