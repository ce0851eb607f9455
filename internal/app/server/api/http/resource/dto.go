package resource

import (
	"parlsync/internal/domain/document"
)

type createInput struct {
	Collection string `path:"collection" doc:"Коллекция"`
	RawBody    []byte `contentType:"application/json" doc:"Документ или список документов"`
}

type itemInput struct {
	Collection string `path:"collection" doc:"Коллекция"`
	ID         string `path:"id" doc:"id документа"`
}

type writeInput struct {
	Collection string `path:"collection" doc:"Коллекция"`
	ID         string `path:"id" doc:"id документа"`
	RawBody    []byte `contentType:"application/json" doc:"Документ"`
}

type findInput struct {
	Collection string `path:"collection" doc:"Коллекция"`
	Where      string `query:"where" doc:"Условие в JSON: равенство, $in, $ne, $exists; путь через точку"`
	Sort       string `query:"sort" doc:"Поля через запятую, - перед полем для убывания"`
	MaxResults int    `query:"max_results" minimum:"0" doc:"Размер страницы, ограничен сверху"`
	Page       int    `query:"page" minimum:"0" doc:"Номер страницы, с 1"`
}

type output struct {
	Status int
	Body   document.Document
}
