package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"rainforest/backend/authz"
	"rainforest/backend/config"
	"rainforest/backend/middleware"
	"rainforest/backend/stats"
	"rainforest/backend/utils"
)

type StatisticsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *authz.Engine
	Stats  *stats.Service
}

func NewStatisticsController(db *gorm.DB, cfg *config.Config, engine *authz.Engine, svc *stats.Service) *StatisticsController {
	return &StatisticsController{DB: db, Cfg: cfg, Engine: engine, Stats: svc}
}

// GetAssignmentStatistics — сводка по заданию (учитель курса).
func (sc *StatisticsController) GetAssignmentStatistics(c *fiber.Ctx) error {
	return sc.report(c, authz.KindAssignment, func(id uint) (interface{}, error) {
		return sc.Stats.Assignment(id)
	})
}

// GetCourseStatistics — сводка по курсу (учитель курса).
func (sc *StatisticsController) GetCourseStatistics(c *fiber.Ctx) error {
	return sc.report(c, authz.KindCourse, func(id uint) (interface{}, error) {
		return sc.Stats.Course(id)
	})
}

// GetClassStatistics — сводка по классу (учитель класса).
func (sc *StatisticsController) GetClassStatistics(c *fiber.Ctx) error {
	return sc.report(c, authz.KindClass, func(id uint) (interface{}, error) {
		return sc.Stats.Class(id)
	})
}

// GetUserStatistics — сводка по пользователю: сам пользователь либо
// учитель/администратор.
func (sc *StatisticsController) GetUserStatistics(c *fiber.Ctx) error {
	return sc.report(c, authz.KindUser, func(id uint) (interface{}, error) {
		return sc.Stats.User(id)
	})
}

func (sc *StatisticsController) report(c *fiber.Ctx, kind authz.Kind, load func(uint) (interface{}, error)) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid ID")
	}

	user := middleware.CurrentUser(c)
	if err := sc.Engine.Evaluate(user, authz.ActionStats, kind, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	report, err := load(uint(id))
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, report)
}
