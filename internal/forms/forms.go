// Package forms разбирает и проверяет HTML-формы приложения.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TopicForm — форма новой темы.
type TopicForm struct {
	Text string `form:"text" validate:"required,max=200"`
}

// EntryForm — форма новой или редактируемой записи.
type EntryForm struct {
	Text string `form:"text" validate:"required"`
}

// RegisterForm — форма регистрации.
type RegisterForm struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Password  string `form:"password1" validate:"required,min=8,bcryptlen"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

// LoginForm — форма входа.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Errors — ошибки по имени поля формы. Ключ "" — ошибки всей формы.
type Errors map[string][]string

// Add добавляет сообщение к полю.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get возвращает первое сообщение для поля.
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Valid сообщает, что ошибок нет.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// MaxPasswordBytes — наибольшая длина пароля в байтах, которую принимает bcrypt.
const MaxPasswordBytes = 72

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// Validator связывает значения формы со структурой и проверяет их.
type Validator struct {
	validate *validator.Validate
}

// New создаёт Validator с зарегистрированными правилами.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	// bcrypt принимает не больше 72 байт
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	return &Validator{validate: v}
}

// Bind заполняет строковые поля dst значениями формы по тегу `form`
// (обрезая пробелы у всего, кроме паролей) и проверяет результат.
// dst должен быть указателем на структуру.
func (v *Validator) Bind(r *http.Request, dst any) (Errors, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind: expected pointer to struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("form")
		if name == "" || field.Type.Kind() != reflect.String {
			continue
		}
		value := r.PostForm.Get(name)
		if !strings.HasPrefix(name, "password") {
			value = strings.TrimSpace(value)
		}
		rv.Field(i).SetString(value)
	}

	return v.Check(dst), nil
}

// Check проверяет уже заполненную структуру.
func (v *Validator) Check(form any) Errors {
	errs := Errors{}
	err := v.validate.Struct(form)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), len([]rune(fe.Value().(string))))
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	case "bcryptlen":
		return fmt.Sprintf("Ensure this value has at most %d bytes (it has %d).", MaxPasswordBytes, len(fe.Value().(string)))
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return "Enter a valid value."
	}
}
