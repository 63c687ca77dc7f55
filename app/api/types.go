package api

import (
	"birdfeed/app/config"
	"birdfeed/app/database"
	"birdfeed/app/tasks"
)

type Handler struct {
	pubRepo   database.PublicationRepository
	seenRepo  database.SeenRepository
	botConfig *config.BotConfig
	scheduler tasks.TaskSchedulerInterface
	runner    tasks.CycleRunner
}
