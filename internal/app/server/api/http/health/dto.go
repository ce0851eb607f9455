package health

type Input struct{}

type Output struct {
	Body Response
}

// Response - состояние хранилища. Time в том же формате, что _created и _updated,
// чтобы клиент мог сверить часы.
type Response struct {
	Status  string `json:"status" example:"OK" doc:"Состояние сервиса"`
	Backend string `json:"backend" example:"memory" doc:"Бэкенд, в котором лежат коллекции"`
	Time    string `json:"time" example:"Wed, 01 May 2024 10:00:00 GMT" doc:"Текущее время сервера"`
}
