package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
)

var registerOnce sync.Once

// RegisterValidators 向 Gin 默认校验器注册课表相关的自定义规则：
//   - hhmm:    24 小时制 HH:MM
//   - weekday: 0=周日 … 6=周六
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("binding 校验引擎类型未知: %T", binding.Validator.Engine())
			return
		}
		if err = v.RegisterValidation("hhmm", validateHHMM); err != nil {
			return
		}
		err = v.RegisterValidation("weekday", validateWeekday)
	})
	return err
}

func validateHHMM(fl validator.FieldLevel) bool {
	return timetable.IsClock(fl.Field().String())
}

func validateWeekday(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 0 && d <= 6
}
